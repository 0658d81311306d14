package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/slicehouse/pizzeria/internal/api/dto"
	"github.com/slicehouse/pizzeria/internal/auth"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

func currentPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

// bind decodes the JSON body into req and runs its validation tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func data(v any) fiber.Map {
	return fiber.Map{"data": v}
}
