package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tournament-ledger/internal/ledger"
	"tournament-ledger/internal/metrics"
)

// ScoreTracker records score submissions against the ledger
type ScoreTracker struct {
	ledger    ledger.Ledger
	publisher StandingPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewScoreTracker creates a new score tracker. publisher and m may be nil.
func NewScoreTracker(l ledger.Ledger, publisher StandingPublisher, m *metrics.Metrics, logger *slog.Logger) *ScoreTracker {
	return &ScoreTracker{
		ledger:    l,
		publisher: publisherOrNoop(publisher),
		metrics:   m,
		logger:    logger,
	}
}

// Submit records score for the user and returns the user's best score.
// Only entered users may submit. A lower score leaves the best unchanged.
func (t *ScoreTracker) Submit(ctx context.Context, tournamentID, userID string, score int64, now time.Time) (int64, error) {
	if score < 0 {
		t.metrics.ScoreSubmission(metrics.ScoreInvalid)
		return 0, ErrInvalidScore
	}

	update, err := t.ledger.RecordScore(ctx, tournamentID, userID, score, now)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotEntered):
			t.metrics.ScoreSubmission(metrics.ScoreNotEntered)
		default:
			t.metrics.ScoreSubmission(metrics.ScoreFailed)
			t.logger.ErrorContext(ctx, "record score failed",
				slog.String("tournament_id", tournamentID),
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
		return 0, err
	}

	best := update.Best
	if !update.Improved() {
		t.metrics.ScoreSubmission(metrics.ScoreUnchanged)
		return best, nil
	}

	t.metrics.ScoreSubmission(metrics.ScoreImproved)

	// The mirror needs name and entry time for its tie-break; read them back.
	entry, ok, err := t.ledger.Get(ctx, tournamentID, userID)
	if err != nil || !ok {
		t.logger.WarnContext(ctx, "standing not published",
			slog.String("tournament_id", tournamentID),
			slog.String("user_id", userID),
			slog.Any("error", err))
		return best, nil
	}
	if entry.BestScore < best {
		entry.BestScore = best
	}
	t.publisher.PublishStanding(tournamentID, entry)

	return best, nil
}
