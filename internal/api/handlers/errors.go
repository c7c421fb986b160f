package handlers

import (
	"errors"

	"tournament-ledger/internal/clock"
	"tournament-ledger/internal/ledger"
	"tournament-ledger/internal/models"
	"tournament-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errorStatus maps domain errors to an HTTP status and a short title
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		return fiber.StatusUnauthorized, "Invalid signature"
	case errors.Is(err, service.ErrMalformedPayload):
		return fiber.StatusBadRequest, "Malformed payload"
	case errors.Is(err, service.ErrInvalidScore):
		return fiber.StatusBadRequest, "Invalid score"
	case errors.Is(err, ledger.ErrNotEntered):
		return fiber.StatusForbidden, "Must join tournament first"
	case errors.Is(err, ledger.ErrTournamentClosed):
		return fiber.StatusConflict, "Tournament closed"
	case errors.Is(err, clock.ErrInvalidTournamentID):
		return fiber.StatusBadRequest, "Invalid tournament id"
	case errors.Is(err, ledger.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable, "Storage unavailable"
	default:
		return fiber.StatusInternalServerError, "Request failed"
	}
}

func respondError(c *fiber.Ctx, err error) error {
	status, title := errorStatus(err)
	return c.Status(status).JSON(models.ErrorResponse{
		Error:   title,
		Message: err.Error(),
	})
}
