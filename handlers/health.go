package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/database"
	"github.com/museume/museume-backend/utils/response"
)

// HealthHandler reports service liveness and database reachability
type HealthHandler struct {
	store database.Storage
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store database.Storage) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check handles GET /api/v1/health
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.store.HealthCheck(); err != nil {
		return response.Error(c, fiber.StatusServiceUnavailable, "Database unreachable", "UNHEALTHY")
	}
	return response.Success(c, fiber.Map{"status": "ok"})
}
