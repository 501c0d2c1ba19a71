package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/user"
)

const contextUserKey = "user"

// authMiddleware authenticates the bearer token and stores the matching user in the context.
// The account must still be approved and active.
func authMiddleware(tokens *TokenService, svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			scheme, tokenStr, found := strings.Cut(auth, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenStr) == "" {
				return ErrTokenMissing
			}

			email, err := tokens.Parse(strings.TrimSpace(tokenStr))
			if err != nil {
				return err
			}
			usr, err := svc.GetByEmail(ctx.Request().Context(), email)
			if err != nil {
				if errors.Is(err, user.ErrNotFound) {
					return ErrUnknownSubject
				}
				return errors.Wrap(err, "finding user by email")
			}
			switch {
			case !usr.IsApproved:
				return user.ErrNotApproved
			case !usr.IsActive:
				return user.ErrAccountDeactivated
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

// roleMiddleware restricts the routes to the users having one of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if err = user.Authorize(usr, roles...); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, ErrTokenMissing
}
