package handlers

import (
	"tournament-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports the service's dependencies
type HealthHandler struct {
	health *service.HealthService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(health *service.HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// HealthCheck handles GET /api/v1/health
// @Summary Health check
// @Description Checks the health of the service and its dependencies
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} models.ErrorResponse
// @Router /api/v1/health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	checks, ok := h.health.Check(c.UserContext())
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":        "Health check failed",
			"message":      "one or more dependencies are unreachable",
			"dependencies": checks,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":       "healthy",
		"message":      "All systems operational",
		"dependencies": checks,
	})
}
