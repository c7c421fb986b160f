package service

import (
	"context"
	"sync"

	"tournament-ledger/internal/models"
)

// LocalVersions counts standing changes per tournament in process. It stands
// in for the Redis version counter when no mirror is configured.
type LocalVersions struct {
	mu       sync.Mutex
	versions map[string]int64
}

// NewLocalVersions creates an empty version counter
func NewLocalVersions() *LocalVersions {
	return &LocalVersions{versions: make(map[string]int64)}
}

// PublishStanding implements StandingPublisher
func (v *LocalVersions) PublishStanding(tournamentID string, _ models.Entry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.versions[tournamentID]++
}

// GetLeaderboardVersion returns how many changes tournamentID has seen
func (v *LocalVersions) GetLeaderboardVersion(_ context.Context, tournamentID string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.versions[tournamentID], nil
}

// Forget drops a finished tournament's counter
func (v *LocalVersions) Forget(tournamentID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.versions, tournamentID)
}
