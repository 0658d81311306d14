package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/slicehouse/pizzeria/internal/api/dto"
	"github.com/slicehouse/pizzeria/internal/service"
)

type LoyaltyHandler struct {
	loyalty *service.LoyaltyService
}

func NewLoyaltyHandler(loyalty *service.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{loyalty: loyalty}
}

// Summary GET /api/loyalty-points.
func (h *LoyaltyHandler) Summary(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	summary, err := h.loyalty.Summary(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Loyalty(summary)))
}

// Redeem POST /api/loyalty-points/redeem.
func (h *LoyaltyHandler) Redeem(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RedeemPointsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	redemption, err := h.loyalty.Redeem(c.UserContext(), principal.User.ID, req.OrderID, req.Points)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Redemption(redemption)))
}
