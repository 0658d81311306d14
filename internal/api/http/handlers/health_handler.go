package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/slicehouse/pizzeria/internal/persistence"
	"github.com/slicehouse/pizzeria/internal/repository"
)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	store       repository.UnitOfWork
	storeDriver string
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance. storeDriver names the backing store
// ("postgres" or "memory") in readiness output. A nil redis is reported as disabled.
func NewHealthHandler(serviceName, version string, store repository.UnitOfWork, storeDriver string, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, store: store, storeDriver: storeDriver, redis: redis}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	if h.store == nil {
		depStatus["database"] = "not configured"
		ready = false
	} else if err := h.store.Ping(ctx); err != nil {
		depStatus[h.storeDriver] = err.Error()
		ready = false
	} else {
		depStatus[h.storeDriver] = "ok"
	}

	if h.redis == nil {
		depStatus["redis"] = "disabled"
	} else if err := h.redis.Ping(ctx); err != nil {
		depStatus["redis"] = err.Error()
		ready = false
	} else {
		depStatus["redis"] = "ok"
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"message": "one or more dependencies unavailable",
		"code":    "DEPENDENCY_UNAVAILABLE",
		"details": depStatus,
	})
}
