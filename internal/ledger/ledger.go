// Package ledger holds per-tournament entries and prize pools.
//
// Every mutation of a tournament is serialized against other mutations of the
// same tournament only. Admission is idempotent per (tournament, user).
package ledger

import (
	"context"
	"errors"
	"time"

	"tournament-ledger/internal/models"
)

var (
	// ErrNotEntered means the user has no entry in the tournament
	ErrNotEntered = errors.New("user has not entered the tournament")

	// ErrTournamentClosed means the tournament's window has ended (or not begun)
	ErrTournamentClosed = errors.New("tournament is closed")

	// ErrStorageUnavailable wraps failures of the backing store
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// AdmitResult reports the outcome of an admission
type AdmitResult struct {
	Created        bool
	Entry          models.Entry
	PrizePoolCents int64
}

// ScoreUpdate is the outcome of RecordScore
type ScoreUpdate struct {
	Previous int64
	Best     int64
}

// Improved reports whether the submission raised the best score
func (u ScoreUpdate) Improved() bool {
	return u.Best > u.Previous
}

// Ledger is the contract shared by the in-memory and Postgres ledgers
type Ledger interface {
	// Admit creates the user's entry if absent and grows the prize pool by the
	// entry fee. An existing entry is returned unchanged with Created=false.
	Admit(ctx context.Context, tournamentID, userID, userName, paymentID string, now time.Time) (AdmitResult, error)

	Get(ctx context.Context, tournamentID, userID string) (models.Entry, bool, error)

	// ListEntries returns entries in admission order
	ListEntries(ctx context.Context, tournamentID string) ([]models.Entry, error)

	// RecordScore raises the entry's best score to score if higher and
	// returns the best score before and after the submission.
	RecordScore(ctx context.Context, tournamentID, userID string, score int64, now time.Time) (ScoreUpdate, error)

	// Snapshot reads the prize pool and entries in one consistent view.
	// Reads never create a tournament; an unknown day reads as empty.
	Snapshot(ctx context.Context, tournamentID string) (models.Snapshot, error)
}
