package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/slicehouse/pizzeria/internal/api/dto"
	"github.com/slicehouse/pizzeria/internal/auth"
	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/service"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

// CatalogHandler serves pizza components and admin inventory.
type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// List returns a handler for GET /api/pizza-<kind>s. Admins also see items without stock.
func (h *CatalogHandler) List(kind domain.CatalogKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := auth.PrincipalFromContext(c)
		isAdmin := principal != nil && principal.User != nil && principal.User.IsAdmin
		items, err := h.catalog.List(c.UserContext(), kind, isAdmin)
		if err != nil {
			return err
		}
		return c.JSON(data(dto.CatalogItems(items)))
	}
}

// Create handles POST /api/admin/inventory/:kind.
func (h *CatalogHandler) Create(c *fiber.Ctx) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	var req dto.CatalogItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	item, err := h.catalog.Create(c.UserContext(), kind, catalogInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(dto.CatalogItem(*item)))
}

// Update handles PATCH /api/admin/inventory/:kind/:id.
func (h *CatalogHandler) Update(c *fiber.Ctx) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	var req dto.CatalogItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	item, err := h.catalog.Update(c.UserContext(), kind, c.Params("id"), catalogInput(req))
	if err != nil {
		return err
	}
	return c.JSON(data(dto.CatalogItem(*item)))
}

// Delete handles DELETE /api/admin/inventory/:kind/:id.
func (h *CatalogHandler) Delete(c *fiber.Ctx) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	if err := h.catalog.Delete(c.UserContext(), kind, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// LowStock handles GET /api/admin/inventory/low-stock.
func (h *CatalogHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.catalog.LowStock(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(data(dto.LowStockItems(items)))
}

func kindParam(c *fiber.Ctx) (domain.CatalogKind, error) {
	kind, ok := domain.ParseCatalogKind(c.Params("kind"))
	if !ok {
		return "", apperrors.NewNotFound("catalog kind", map[string]any{"kind": c.Params("kind")})
	}
	return kind, nil
}

func catalogInput(req dto.CatalogItemRequest) service.CatalogInput {
	return service.CatalogInput{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		ImageURL:     req.ImageURL,
		Stock:        req.Stock,
		Threshold:    req.Threshold,
		IsVegetarian: req.IsVegetarian,
	}
}
