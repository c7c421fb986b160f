package service

import (
	"context"
	"time"

	"tournament-ledger/internal/clock"
	"tournament-ledger/internal/ledger"
	"tournament-ledger/internal/models"
)

// Status is a tournament's state as seen by one caller
type Status struct {
	TournamentID   string
	TimeRemaining  time.Duration
	PrizePoolCents int64
	PlayerCount    int
	UserBestScore  int64
	HasEntered     bool
	Leaderboard    []models.LeaderboardEntry
}

// Response converts the status to its wire form
func (s Status) Response() models.StatusResponse {
	return models.StatusResponse{
		TournamentID:  s.TournamentID,
		TimeRemaining: clock.FormatRemaining(s.TimeRemaining),
		PrizePool:     models.CentsToDollars(s.PrizePoolCents),
		PlayerCount:   s.PlayerCount,
		UserBestScore: s.UserBestScore,
		HasEntered:    s.HasEntered,
		Leaderboard:   s.Leaderboard,
	}
}

// StatusReporter builds tournament status from a single ledger snapshot
type StatusReporter struct {
	ledger          ledger.Ledger
	clock           *clock.Clock
	leaderboardSize int
}

// NewStatusReporter creates a new status reporter
func NewStatusReporter(l ledger.Ledger, c *clock.Clock, leaderboardSize int) *StatusReporter {
	if leaderboardSize <= 0 {
		leaderboardSize = DefaultLeaderboardSize
	}
	return &StatusReporter{
		ledger:          l,
		clock:           c,
		leaderboardSize: leaderboardSize,
	}
}

// Status reports the tournament for callerUserID. An empty or unknown caller
// gets HasEntered=false and a zero best score.
func (r *StatusReporter) Status(ctx context.Context, tournamentID, callerUserID string, now time.Time) (Status, error) {
	remaining, err := r.clock.TimeRemainingFor(tournamentID, now)
	if err != nil {
		return Status{}, err
	}

	snap, err := r.ledger.Snapshot(ctx, tournamentID)
	if err != nil {
		return Status{}, err
	}

	status := Status{
		TournamentID:   tournamentID,
		TimeRemaining:  remaining,
		PrizePoolCents: snap.PrizePoolCents,
		PlayerCount:    len(snap.Entries),
		Leaderboard:    Rank(snap.Entries, r.leaderboardSize),
	}

	if callerUserID != "" {
		for _, e := range snap.Entries {
			if e.UserID == callerUserID {
				status.HasEntered = true
				status.UserBestScore = e.BestScore
				break
			}
		}
	}

	return status, nil
}
