package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/slicehouse/pizzeria/internal/api/dto"
	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/service"
)

// SubscriptionsHandler exposes plans and the user's recurring deliveries.
type SubscriptionsHandler struct {
	subscriptions *service.SubscriptionService
}

func NewSubscriptionsHandler(subscriptions *service.SubscriptionService) *SubscriptionsHandler {
	return &SubscriptionsHandler{subscriptions: subscriptions}
}

// ListPlans GET /api/subscription-plans.
func (h *SubscriptionsHandler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.subscriptions.ListPlans(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Plans(plans)))
}

// CreatePlan POST /api/admin/subscription-plans.
func (h *SubscriptionsHandler) CreatePlan(c *fiber.Ctx) error {
	var req dto.CreatePlanRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	plan, err := h.subscriptions.CreatePlan(c.UserContext(), req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(dto.Plan(*plan)))
}

// Subscribe POST /api/subscribe.
func (h *SubscriptionsHandler) Subscribe(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SubscribeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	detail, err := h.subscriptions.Subscribe(c.UserContext(), principal.User.ID, req.PlanID, req.DeliveryAddress)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(dto.Subscription(*detail)))
}

// List GET /api/user-subscriptions.
func (h *SubscriptionsHandler) List(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	details, err := h.subscriptions.ListForUser(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Subscriptions(details)))
}

// Transition returns a handler for POST /api/user-subscriptions/:id/<action>.
func (h *SubscriptionsHandler) Transition(action domain.SubscriptionAction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := currentPrincipal(c)
		if err != nil {
			return err
		}
		detail, err := h.subscriptions.Transition(c.UserContext(), principal.User.ID, c.Params("id"), action)
		if err != nil {
			return err
		}
		return c.JSON(data(dto.Subscription(*detail)))
	}
}
