package service

import (
	"cmp"
	"context"
	"slices"

	"tournament-ledger/internal/ledger"
	"tournament-ledger/internal/models"
)

// DefaultLeaderboardSize is used when a caller asks for a non-positive size
const DefaultLeaderboardSize = 10

// LeaderboardView ranks a tournament's entries
type LeaderboardView struct {
	ledger      ledger.Ledger
	defaultSize int
}

// NewLeaderboardView creates a new leaderboard view
func NewLeaderboardView(l ledger.Ledger, defaultSize int) *LeaderboardView {
	if defaultSize <= 0 {
		defaultSize = DefaultLeaderboardSize
	}
	return &LeaderboardView{
		ledger:      l,
		defaultSize: defaultSize,
	}
}

// DefaultSize is the number of rows returned when no size is requested
func (v *LeaderboardView) DefaultSize() int {
	return v.defaultSize
}

// TopN returns the n best entries of a tournament. n <= 0 means the default size.
func (v *LeaderboardView) TopN(ctx context.Context, tournamentID string, n int) ([]models.LeaderboardEntry, error) {
	if n <= 0 {
		n = v.defaultSize
	}

	entries, err := v.ledger.ListEntries(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return Rank(entries, n), nil
}

// Rank orders entries that have scored by best score descending. Equal scores
// keep the earlier entry first. The input slice is not modified.
func Rank(entries []models.Entry, n int) []models.LeaderboardEntry {
	if n <= 0 {
		n = DefaultLeaderboardSize
	}

	scored := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if e.BestScore > 0 {
			scored = append(scored, e)
		}
	}

	slices.SortStableFunc(scored, func(a, b models.Entry) int {
		if c := cmp.Compare(b.BestScore, a.BestScore); c != 0 {
			return c
		}
		return a.EntryTime.Compare(b.EntryTime)
	})

	if len(scored) > n {
		scored = scored[:n]
	}

	ranked := make([]models.LeaderboardEntry, 0, len(scored))
	for _, e := range scored {
		ranked = append(ranked, models.LeaderboardEntry{
			ID:         e.UserID,
			PlayerName: e.UserName,
			Score:      e.BestScore,
		})
	}
	return ranked
}
