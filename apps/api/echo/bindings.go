package echoapi

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

type messageResponse struct {
	Message string `json:"message"`
}

// bindPage reads the `skip` and `limit` query params.
func bindPage(ctx echo.Context) (core.Page, error) {
	var page core.Page
	err := echo.QueryParamsBinder(ctx).
		Int("skip", &page.Skip).
		Int("limit", &page.Limit).
		BindError()
	return page, err
}

// pathID reads the integer path param `name`.
func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id < 1 {
		return 0, core.NewValidationError(
			errors.Errorf("invalid %s %q", name, ctx.Param(name)),
			core.FieldError{Field: name, Error: name + " must be a positive integer"},
		)
	}
	return id, nil
}

func requiredFieldError(field string) error {
	return core.NewValidationError(
		errors.Errorf("%s is required", field),
		core.FieldError{Field: field, Error: "this field is required"},
	)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func formatDays(d float64) string {
	return fmt.Sprintf("%.1f jours", d)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
