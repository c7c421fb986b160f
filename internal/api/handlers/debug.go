package handlers

import (
	"context"
	"strconv"

	"tournament-ledger/internal/models"

	"github.com/gofiber/fiber/v2"
)

const maxSimulatedPlayers = 500

// Simulator admits demo players and plays one round for each
type Simulator interface {
	SimulateBurst(ctx context.Context, players int) (int, error)
}

// DebugHandler exposes load simulation for demos
type DebugHandler struct {
	simulator Simulator
}

// NewDebugHandler creates a new debug handler
func NewDebugHandler(simulator Simulator) *DebugHandler {
	return &DebugHandler{simulator: simulator}
}

// SimulateLoad handles POST /api/v1/debug/simulate?players=N
// @Summary Simulate players
// @Description Pays entry for N demo players through the signed webhook path and submits a score for each
// @Produce json
// @Param players query int false "Number of players" default(10)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/debug/simulate [post]
func (h *DebugHandler) SimulateLoad(c *fiber.Ctx) error {
	players, err := strconv.Atoi(c.Query("players", "10"))
	if err != nil || players <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Invalid players",
			Message: "players must be a positive integer",
		})
	}
	if players > maxSimulatedPlayers {
		players = maxSimulatedPlayers
	}

	admitted, err := h.simulator.SimulateBurst(c.UserContext(), players)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":  "Simulation completed",
		"admitted": admitted,
	})
}
