package core

import (
	"context"

	"github.com/pkg/errors"
)

const DefaultPageLimit = 100

// Transactor runs fn inside a single atomic unit of work.
// Calls nested in fn's context join the outer transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Page is an offset/limit window; the limit applies after the offset.
type Page struct {
	Skip  int `query:"skip"`
	Limit int `query:"limit"`
}

// Normalize validates the page and applies the default limit.
func (p Page) Normalize() (Page, error) {
	var fields []FieldError
	if p.Skip < 0 {
		fields = append(fields, FieldError{Field: "skip", Error: "must be a non-negative integer"})
	}
	if p.Limit < 0 {
		fields = append(fields, FieldError{Field: "limit", Error: "must be a non-negative integer"})
	}
	if len(fields) > 0 {
		return p, NewValidationError(errors.New("invalid pagination"), fields...)
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	return p, nil
}

// Bounds returns the [start, end) slice indexes of the page over n items.
func (p Page) Bounds(n int) (int, int) {
	start := p.Skip
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}
