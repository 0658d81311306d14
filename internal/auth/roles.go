package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

// RequireUser ensures a user is authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if principal, ok := PrincipalFromContext(c); !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the loaded user carries the admin flag.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.User.IsAdmin {
			return apperrors.NewForbidden("admin access required")
		}
		return c.Next()
	}
}
