package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"tournament-ledger/internal/clock"
	"tournament-ledger/internal/ledger"
	"tournament-ledger/internal/metrics"
	"tournament-ledger/internal/models"
	"tournament-ledger/internal/signature"

	"github.com/go-playground/validator/v10"
)

// Payment event types that admit a player
const (
	EventPaymentSucceeded       = "payment.succeeded"
	EventPaymentSucceededLegacy = "payment_succeeded"
)

// Outcome classifies a processed webhook delivery
type Outcome string

const (
	OutcomeAdmittedNew       Outcome = "admitted"
	OutcomeAdmittedDuplicate Outcome = "duplicate"
	OutcomeIgnored           Outcome = "ignored"
	OutcomeRejected          Outcome = "rejected"
)

// IngestResult reports what a webhook delivery did to the ledger
type IngestResult struct {
	Outcome        Outcome
	TournamentID   string
	Entry          models.Entry
	PrizePoolCents int64
}

// WebhookIngestor turns verified payment webhooks into tournament admissions
type WebhookIngestor struct {
	ledger    ledger.Ledger
	clock     *clock.Clock
	verifier  signature.Verifier
	validate  *validator.Validate
	publisher StandingPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewWebhookIngestor creates a new webhook ingestor. publisher and m may be nil.
func NewWebhookIngestor(
	l ledger.Ledger,
	c *clock.Clock,
	verifier signature.Verifier,
	publisher StandingPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *WebhookIngestor {
	return &WebhookIngestor{
		ledger:    l,
		clock:     c,
		verifier:  verifier,
		validate:  validator.New(),
		publisher: publisherOrNoop(publisher),
		metrics:   m,
		logger:    logger,
	}
}

// Ingest verifies, parses and applies one webhook delivery. Redelivery of the
// same payment admits nobody twice.
func (w *WebhookIngestor) Ingest(ctx context.Context, rawBody []byte, signatureHeader, secret string, now time.Time) (IngestResult, error) {
	if !w.verifier.Verify(rawBody, signatureHeader, secret) {
		w.metrics.WebhookEvent(metrics.OutcomeRejected)
		w.logger.WarnContext(ctx, "webhook signature rejected")
		return IngestResult{Outcome: OutcomeRejected}, ErrInvalidSignature
	}

	var event models.PaymentEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		w.metrics.WebhookEvent(metrics.OutcomeRejected)
		return IngestResult{Outcome: OutcomeRejected}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	if event.Type != EventPaymentSucceeded && event.Type != EventPaymentSucceededLegacy {
		w.metrics.WebhookEvent(metrics.OutcomeIgnored)
		w.logger.InfoContext(ctx, "webhook event ignored", slog.String("type", event.Type))
		return IngestResult{Outcome: OutcomeIgnored}, nil
	}

	data, err := w.parsePayment(event.Data)
	if err != nil {
		w.metrics.WebhookEvent(metrics.OutcomeRejected)
		return IngestResult{Outcome: OutcomeRejected}, err
	}

	userID := ResolveUserID(data)
	userName := ResolveUserName(data, userID)
	tournamentID := w.clock.CurrentTournamentID(now)

	admitted, err := w.ledger.Admit(ctx, tournamentID, userID, userName, data.ID, now)
	if err != nil {
		w.metrics.WebhookEvent(metrics.OutcomeFailed)
		w.logger.ErrorContext(ctx, "admission failed",
			slog.String("tournament_id", tournamentID),
			slog.String("user_id", userID),
			slog.String("payment_id", data.ID),
			slog.Any("error", err))
		return IngestResult{TournamentID: tournamentID}, err
	}

	result := IngestResult{
		Outcome:        OutcomeAdmittedDuplicate,
		TournamentID:   tournamentID,
		Entry:          admitted.Entry,
		PrizePoolCents: admitted.PrizePoolCents,
	}
	w.metrics.TournamentAdmission(tournamentID, admitted.PrizePoolCents, admitted.Created)

	if !admitted.Created {
		w.metrics.WebhookEvent(metrics.OutcomeDuplicate)
		w.logger.InfoContext(ctx, "duplicate admission",
			slog.String("tournament_id", tournamentID),
			slog.String("user_id", userID),
			slog.String("payment_id", data.ID))
		return result, nil
	}

	result.Outcome = OutcomeAdmittedNew
	w.metrics.WebhookEvent(metrics.OutcomeAdmitted)
	w.publisher.PublishStanding(tournamentID, admitted.Entry)
	w.logger.InfoContext(ctx, "player admitted",
		slog.String("tournament_id", tournamentID),
		slog.String("user_id", userID),
		slog.String("payment_id", data.ID),
		slog.Int64("prize_pool_cents", admitted.PrizePoolCents))

	return result, nil
}

func (w *WebhookIngestor) parsePayment(raw json.RawMessage) (models.PaymentData, error) {
	var data models.PaymentData

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return data, fmt.Errorf("%w: missing data", ErrMalformedPayload)
	}
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return data, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if err := w.validate.Struct(data); err != nil {
		return data, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return data, nil
}

// ResolveUserID picks the player identity from a payment. The payment id is
// the last resort so every payment maps to some player.
func ResolveUserID(data models.PaymentData) string {
	if data.User != nil {
		if data.User.ID != "" {
			return data.User.ID
		}
		if data.User.WhopUserID != "" {
			return data.User.WhopUserID
		}
	}
	if data.Metadata != nil && data.Metadata.UserID != "" {
		return data.Metadata.UserID
	}
	return data.ID
}

// ResolveUserName picks a display name, falling back to "Player <id prefix>"
func ResolveUserName(data models.PaymentData, userID string) string {
	if data.User != nil {
		if data.User.Username != "" {
			return data.User.Username
		}
		if data.User.Email != "" {
			return data.User.Email
		}
	}

	prefix := []rune(userID)
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}
	return "Player " + string(prefix)
}
