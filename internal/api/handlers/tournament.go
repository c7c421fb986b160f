package handlers

import (
	"strconv"

	"tournament-ledger/internal/api/middleware"
	"tournament-ledger/internal/clock"
	"tournament-ledger/internal/models"
	"tournament-ledger/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// maxLeaderboardLimit caps the limit query parameter
const maxLeaderboardLimit = 100

// TournamentHandler handles player-facing tournament requests
type TournamentHandler struct {
	clock       *clock.Clock
	scores      *service.ScoreTracker
	leaderboard *service.LeaderboardView
	status      *service.StatusReporter
	validator   *validator.Validate
}

// NewTournamentHandler creates a new tournament handler
func NewTournamentHandler(
	c *clock.Clock,
	scores *service.ScoreTracker,
	leaderboard *service.LeaderboardView,
	status *service.StatusReporter,
) *TournamentHandler {
	return &TournamentHandler{
		clock:       c,
		scores:      scores,
		leaderboard: leaderboard,
		status:      status,
		validator:   validator.New(),
	}
}

// SubmitScore handles POST /api/v1/tournament/submit-score
// @Summary Submit a score
// @Description Records a score for the caller in today's tournament and returns their best
// @Accept json
// @Produce json
// @Param request body models.ScoreRequest true "Score submission"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/v1/tournament/submit-score [post]
func (h *TournamentHandler) SubmitScore(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
			Error:   "Unauthorized",
			Message: "caller identity is required",
		})
	}

	var req models.ScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Invalid score",
			Message: err.Error(),
		})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Invalid score",
			Message: err.Error(),
		})
	}

	now := h.clock.Now()
	tournamentID := h.clock.CurrentTournamentID(now)

	best, err := h.scores.Submit(c.UserContext(), tournamentID, userID, *req.Score, now)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":      true,
		"tournamentId": tournamentID,
		"bestScore":    best,
	})
}

// GetStatus handles GET /api/v1/tournament/status
// @Summary Tournament status
// @Description Time remaining, prize pool, player count, caller standing and top 10
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/v1/tournament/status [get]
func (h *TournamentHandler) GetStatus(c *fiber.Ctx) error {
	now := h.clock.Now()

	status, err := h.status.Status(c.UserContext(), h.clock.CurrentTournamentID(now), middleware.UserID(c), now)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(status.Response())
}

// GetLeaderboard handles GET /api/v1/tournament/leaderboard
// @Summary Current leaderboard
// @Produce json
// @Param limit query int false "Number of rows" default(10)
// @Success 200 {object} models.LeaderboardResponse
// @Router /api/v1/tournament/leaderboard [get]
func (h *TournamentHandler) GetLeaderboard(c *fiber.Ctx) error {
	return h.respondLeaderboard(c, h.clock.CurrentTournamentID(h.clock.Now()))
}

// GetTournamentLeaderboard handles GET /api/v1/tournaments/:id/leaderboard
// @Summary Leaderboard of any tournament
// @Produce json
// @Param id path string true "Tournament id, e.g. tournament_2024-05-01"
// @Param limit query int false "Number of rows" default(10)
// @Success 200 {object} models.LeaderboardResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/tournaments/{id}/leaderboard [get]
func (h *TournamentHandler) GetTournamentLeaderboard(c *fiber.Ctx) error {
	// Params are views of a pooled buffer; the ledger may keep the id
	return h.respondLeaderboard(c, utils.CopyString(c.Params("id")))
}

func (h *TournamentHandler) respondLeaderboard(c *fiber.Ctx, tournamentID string) error {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = 0 // service default
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	entries, err := h.leaderboard.TopN(c.UserContext(), tournamentID, limit)
	if err != nil {
		return respondError(c, err)
	}

	if limit == 0 {
		limit = h.leaderboard.DefaultSize()
	}
	return c.Status(fiber.StatusOK).JSON(models.LeaderboardResponse{
		TournamentID: tournamentID,
		Data:         entries,
		Limit:        limit,
	})
}
