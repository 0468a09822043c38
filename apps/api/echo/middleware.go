package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core/account"
	"github.com/mwanzohq/mwanzo/services/metrics"
)

// roleMiddleware only lets callers through whose role claim parses onto
// one of the given roles.
func roleMiddleware(roles ...account.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			role, ok := claims.AccountRole()
			if !ok {
				return errHttpForbidden
			}
			for _, allowed := range roles {
				if role == allowed {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(account.RoleAdmin)
}

func staffMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(account.RoleAdmin, account.RoleTeacher)
}

func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}
			metrics.ObserveRequest(
				ctx.Request().Method,
				ctx.Path(),
				ctx.Response().Status,
				time.Since(start),
			)
			return nil
		}
	}
}
