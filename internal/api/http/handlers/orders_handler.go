package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/slicehouse/pizzeria/internal/api/dto"
	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/service"
)

// OrdersHandler manages customer and admin order endpoints.
type OrdersHandler struct {
	orders     *service.OrderService
	promotions *service.PromotionService
}

func NewOrdersHandler(orders *service.OrderService, promotions *service.PromotionService) *OrdersHandler {
	return &OrdersHandler{orders: orders, promotions: promotions}
}

// Create POST /api/orders.
func (h *OrdersHandler) Create(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	placement, err := h.orders.PlaceOrder(c.UserContext(), principal.User.ID, req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(dto.PlaceOrderResponse{
		Order:         dto.Order(placement.Order, placement.Items),
		LowStockItems: dto.LowStockItems(placement.LowStock),
	}))
}

// List GET /api/orders.
func (h *OrdersHandler) List(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	orders, err := h.orders.ListForUser(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Orders(orders)))
}

// Get GET /api/orders/:id.
func (h *OrdersHandler) Get(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	detail, err := h.orders.Get(c.UserContext(), principal.User.ID, principal.User.IsAdmin, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Order(detail.Order, detail.Items)))
}

// Cancel POST /api/orders/:id/cancel.
func (h *OrdersHandler) Cancel(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	order, err := h.orders.Cancel(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Order(order, nil)))
}

// ApplyPromotion POST /api/orders/:id/apply-promotion.
func (h *OrdersHandler) ApplyPromotion(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ApplyPromotionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	order, err := h.promotions.ApplyToOrder(c.UserContext(), principal.User.ID, c.Params("id"), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Order(order, nil)))
}

// ListAll GET /api/admin/orders?status=pending,received&limit=50&offset=0.
func (h *OrdersHandler) ListAll(c *fiber.Ctx) error {
	var statuses []domain.OrderStatus
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			statuses = append(statuses, domain.OrderStatus(strings.ToLower(raw)))
		}
	}
	orders, err := h.orders.ListAll(c.UserContext(), statuses, queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Orders(orders)))
}

// UpdateStatus PATCH /api/admin/orders/:id/status.
func (h *OrdersHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateOrderStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	order, err := h.orders.UpdateStatus(c.UserContext(), c.Params("id"), status, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Order(order, nil)))
}

// UpdateTracking PATCH /api/admin/orders/:id/tracking.
func (h *OrdersHandler) UpdateTracking(c *fiber.Ctx) error {
	var req dto.UpdateTrackingRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	order, err := h.orders.UpdateTracking(c.UserContext(), c.Params("id"), service.TrackingInput{
		EstimatedDeliveryTime: req.EstimatedDeliveryTime,
		Note:                  req.Note,
	})
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Order(order, nil)))
}

// MarkDelivered POST /api/admin/orders/:id/delivered.
func (h *OrdersHandler) MarkDelivered(c *fiber.Ctx) error {
	order, err := h.orders.MarkDelivered(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Order(order, nil)))
}
