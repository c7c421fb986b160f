package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-ledger/internal/metrics"
	"tournament-ledger/internal/models"
)

type recordingSink struct {
	mu      sync.Mutex
	entries map[string]models.Entry
	fail    bool
	panics  bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{entries: make(map[string]models.Entry)}
}

func (s *recordingSink) UpsertStanding(_ context.Context, tournamentID string, entry models.Entry) error {
	if s.panics {
		panic("sink exploded")
	}
	if s.fail {
		return errors.New("redis down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tournamentID+"/"+entry.UserID] = entry
	return nil
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func TestWorkerPool_MirrorsStandings(t *testing.T) {
	sink := newRecordingSink()
	pool := NewWorkerPool(4, 100, sink, metrics.NewNoop())
	pool.Start()

	for _, uid := range []string{"u1", "u2", "u3"} {
		pool.PublishStanding("tournament_2024-05-01", models.Entry{UserID: uid, BestScore: 10})
	}

	require.NoError(t, pool.Shutdown(time.Second))
	assert.Equal(t, 3, sink.len())
	assert.Equal(t, int64(3), pool.GetMetrics()["processed"])
}

func TestWorkerPool_Backpressure(t *testing.T) {
	pool := NewWorkerPool(1, 1, newRecordingSink(), nil)

	require.NoError(t, pool.Submit(MirrorTask{TournamentID: "t", Entry: models.Entry{UserID: "u1"}}))
	err := pool.Submit(MirrorTask{TournamentID: "t", Entry: models.Entry{UserID: "u2"}})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int64(1), pool.GetMetrics()["backpressure_events"])

	require.NoError(t, pool.Shutdown(time.Second))
}

func TestWorkerPool_FailuresAreCounted(t *testing.T) {
	tests := []struct {
		name string
		sink *recordingSink
	}{
		{"sink error", &recordingSink{entries: map[string]models.Entry{}, fail: true}},
		{"sink panic", &recordingSink{entries: map[string]models.Entry{}, panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(1, 10, tt.sink, nil)
			pool.Start()
			pool.PublishStanding("t", models.Entry{UserID: "u1"})
			require.NoError(t, pool.Shutdown(time.Second))

			assert.Equal(t, int64(1), pool.GetMetrics()["failed"])
			assert.Equal(t, int64(0), pool.GetMetrics()["processed"])
		})
	}
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(1, 10, newRecordingSink(), nil)
	pool.Start()
	require.NoError(t, pool.Shutdown(time.Second))

	assert.Error(t, pool.Submit(MirrorTask{TournamentID: "t"}))
	assert.NotPanics(t, func() { pool.PublishStanding("t", models.Entry{UserID: "u1"}) })
	assert.NoError(t, pool.Shutdown(time.Second))
}
