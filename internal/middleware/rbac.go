package middleware

import (
	"warnengine/internal/common"
	"warnengine/internal/models"

	"github.com/labstack/echo/v4"
)

// RequireRole admits callers whose role ranks at least min.
func RequireRole(min models.TargetRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := common.GetRoleFromContext(c.Request().Context())
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			if models.TargetRole(role).Rank() < min.Rank() {
				return common.SendForbiddenError(c)
			}
			return next(c)
		}
	}
}

// RequireAgency admits callers bound to an agency. Platform admins pass
// without one.
func RequireAgency() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if role, _ := common.GetRoleFromContext(ctx); models.TargetRole(role) == models.RolePlatformAdmin {
				return next(c)
			}
			if _, ok := common.GetAgencyIDFromContext(ctx); !ok {
				return common.SendForbiddenError(c)
			}
			return next(c)
		}
	}
}
