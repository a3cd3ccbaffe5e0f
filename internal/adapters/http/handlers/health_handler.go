package handlers

import (
	"pointjournaliere/internal/config"
	"pointjournaliere/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	cfg      *config.Config
	registry *services.SessionRegistry
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(cfg *config.Config, registry *services.SessionRegistry) *HealthHandler {
	return &HealthHandler{cfg: cfg, registry: registry}
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API and receipts database health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "disabled"
	if h.cfg.Receipts.Enabled {
		dbStatus = "healthy"
		if err := config.HealthCheck(); err != nil {
			dbStatus = "unhealthy"
			status = "degraded"
			c.Status(fiber.StatusServiceUnavailable)
		}
	}

	return c.JSON(fiber.Map{
		"status": status,
		"mode":   h.cfg.AppMode,
		"checks": fiber.Map{
			"api":      "healthy",
			"database": dbStatus,
		},
		"sessions": h.registry.Len(),
	})
}

// APIInfo handles API v1 info
// @Summary API v1 Info
// @Description Returns API v1 information
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1 [get]
func (h *HealthHandler) APIInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Point Journalière API v1.0",
		"version": "1.0.0",
		"docs":    "/swagger/index.html",
	})
}
