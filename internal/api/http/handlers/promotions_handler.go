package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/slicehouse/pizzeria/internal/api/dto"
	"github.com/slicehouse/pizzeria/internal/service"
)

// PromotionsHandler exposes promotion lookup and admin management.
type PromotionsHandler struct {
	promotions *service.PromotionService
}

func NewPromotionsHandler(promotions *service.PromotionService) *PromotionsHandler {
	return &PromotionsHandler{promotions: promotions}
}

// ListActive GET /api/promotions.
func (h *PromotionsHandler) ListActive(c *fiber.Ctx) error {
	promos, err := h.promotions.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Promotions(promos)))
}

// Validate POST /api/promotions/validate.
func (h *PromotionsHandler) Validate(c *fiber.Ctx) error {
	var req dto.ValidatePromotionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	quote, err := h.promotions.Validate(c.UserContext(), req.Code, req.OrderAmount)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.PromotionQuoteResponse{
		Promotion:   dto.Promotion(*quote.Promotion),
		Discount:    quote.Discount,
		FinalAmount: quote.Final,
	}))
}

// ListAll GET /api/admin/promotions.
func (h *PromotionsHandler) ListAll(c *fiber.Ctx) error {
	promos, err := h.promotions.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Promotions(promos)))
}

// Create POST /api/admin/promotions.
func (h *PromotionsHandler) Create(c *fiber.Ctx) error {
	var req dto.PromotionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	promo, err := h.promotions.Create(c.UserContext(), req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(dto.Promotion(*promo)))
}

// Update PATCH /api/admin/promotions/:id.
func (h *PromotionsHandler) Update(c *fiber.Ctx) error {
	var req dto.PromotionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	promo, err := h.promotions.Update(c.UserContext(), c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Promotion(*promo)))
}

// Delete DELETE /api/admin/promotions/:id.
func (h *PromotionsHandler) Delete(c *fiber.Ctx) error {
	if err := h.promotions.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
