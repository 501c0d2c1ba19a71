package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/message"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
)

// sentinelCodes maps the business errors to their HTTP status, checked in order.
var sentinelCodes = []struct {
	err  error
	code int
}{
	{user.ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrTokenMissing, http.StatusUnauthorized},
	{ErrTokenInvalid, http.StatusUnauthorized},
	{ErrTokenExpired, http.StatusUnauthorized},
	{ErrUnknownSubject, http.StatusUnauthorized},
	{user.ErrNotApproved, http.StatusForbidden},
	{user.ErrAccountDeactivated, http.StatusForbidden},
	{core.ErrForbidden, http.StatusForbidden},
	{user.ErrSelfDeleteForbidden, http.StatusBadRequest},
	{user.ErrNotFound, http.StatusNotFound},
	{course.ErrNotFound, http.StatusNotFound},
	{course.ErrMaterialNotFound, http.StatusNotFound},
	{progress.ErrNotEnrolled, http.StatusNotFound},
	{notification.ErrNotFound, http.StatusNotFound},
	{message.ErrNotFound, http.StatusNotFound},
	{message.ErrReceiverNotFound, http.StatusNotFound},
	{progress.ErrAlreadyEnrolled, http.StatusConflict},
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *echo.BindingError:
			code = http.StatusBadRequest
			message = map[string]string{origErr.Field: "invalid value"}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				message = origErr.FieldMap()
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			for _, sc := range sentinelCodes {
				if errors.Is(err, sc.err) {
					code = sc.code
					message = sc.err.Error()
					break
				}
			}
			if code != 0 {
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			usr, _ := ctx.Get(contextUserKey).(user.User)
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if code == http.StatusUnauthorized {
			ctx.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
