package middleware

import (
	"github.com/anonto42/studynest/backend/internal/apperrors"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// AuthorizeRoles only lets through users holding one of roles. It must run
// after IdentityVerifier.Middleware.
func AuthorizeRoles(roles ...models.Role) echo.MiddlewareFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return apperrors.Unauthenticated("User not authenticated")
			}
			if !allowed[user.Role] {
				return apperrors.Forbidden("You do not have permission to perform this action")
			}
			return next(c)
		}
	}
}
