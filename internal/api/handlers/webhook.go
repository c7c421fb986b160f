package handlers

import (
	"context"
	"strings"
	"time"

	"tournament-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

// fallbackSignatureHeaders are checked when the configured header is absent
var fallbackSignatureHeaders = []string{"X-Whop-Signature", "Whop-Signature", "Webhook-Signature"}

// Ingestor applies a signed payment webhook to the ledger
type Ingestor interface {
	Ingest(ctx context.Context, rawBody []byte, signatureHeader, secret string, now time.Time) (service.IngestResult, error)
}

// WebhookHandler handles payment provider callbacks
type WebhookHandler struct {
	ingestor Ingestor
	secret   string
	headers  []string
	now      func() time.Time
}

// NewWebhookHandler creates a new webhook handler. signatureHeader is tried
// before the provider's usual header names.
func NewWebhookHandler(ingestor Ingestor, secret, signatureHeader string, now func() time.Time) *WebhookHandler {
	headers := make([]string, 0, len(fallbackSignatureHeaders)+1)
	if signatureHeader != "" {
		headers = append(headers, signatureHeader)
	}
	for _, h := range fallbackSignatureHeaders {
		if !strings.EqualFold(h, signatureHeader) {
			headers = append(headers, h)
		}
	}
	if now == nil {
		now = time.Now
	}

	return &WebhookHandler{
		ingestor: ingestor,
		secret:   secret,
		headers:  headers,
		now:      now,
	}
}

// HandleWhop handles POST /api/v1/webhooks/whop
// @Summary Payment webhook
// @Description Admits the paying user to today's tournament
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/v1/webhooks/whop [post]
func (h *WebhookHandler) HandleWhop(c *fiber.Ctx) error {
	result, err := h.ingestor.Ingest(c.UserContext(), c.Body(), h.signatureHeader(c), h.secret, h.now())
	if err != nil {
		return respondError(c, err)
	}

	response := fiber.Map{
		"success": true,
		"outcome": result.Outcome,
	}
	if result.Outcome != service.OutcomeIgnored {
		response["tournamentId"] = result.TournamentID
		response["userId"] = result.Entry.UserID
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *WebhookHandler) signatureHeader(c *fiber.Ctx) string {
	for _, name := range h.headers {
		if v := c.Get(name); v != "" {
			return v
		}
	}
	return ""
}
