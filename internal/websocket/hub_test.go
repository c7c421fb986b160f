package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-ledger/internal/clock"
)

type fakeVersions struct {
	mu       sync.Mutex
	versions map[string]int64
	err      error
}

func (f *fakeVersions) GetLeaderboardVersion(_ context.Context, tournamentID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.versions[tournamentID], f.err
}

func (f *fakeVersions) set(tournamentID string, v int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[tournamentID] = v
}

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (s *stubClock) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *stubClock) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func newTestHub(t *testing.T) (*Hub, *fakeVersions, *stubClock, *Client) {
	t.Helper()
	sc := &stubClock{now: time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)}
	versions := &fakeVersions{versions: map[string]int64{}}
	hub := NewHub(versions, clock.NewWithNow(sc.Now))

	client := &Client{hub: hub, send: make(chan []byte, 8)}
	hub.clients[client] = true
	return hub, versions, sc, client
}

func receive(t *testing.T, c *Client) VersionUpdate {
	t.Helper()
	select {
	case msg := <-c.send:
		var update VersionUpdate
		require.NoError(t, json.Unmarshal(msg, &update))
		return update
	default:
		t.Fatal("expected a message")
		return VersionUpdate{}
	}
}

func TestHub_BroadcastsOnlyOnChange(t *testing.T) {
	hub, versions, _, client := newTestHub(t)
	ctx := context.Background()

	versions.set("tournament_2024-05-01", 3)
	hub.checkAndBroadcastVersion(ctx)

	update := receive(t, client)
	assert.Equal(t, "VERSION_UPDATE", update.Type)
	assert.Equal(t, "tournament_2024-05-01", update.TournamentID)
	assert.Equal(t, int64(3), update.Version)

	hub.checkAndBroadcastVersion(ctx)
	assert.Len(t, client.send, 0)

	versions.set("tournament_2024-05-01", 4)
	hub.checkAndBroadcastVersion(ctx)
	assert.Equal(t, int64(4), receive(t, client).Version)
}

func TestHub_BroadcastsOnRollover(t *testing.T) {
	hub, versions, sc, client := newTestHub(t)
	ctx := context.Background()

	versions.set("tournament_2024-05-01", 5)
	hub.checkAndBroadcastVersion(ctx)
	receive(t, client)

	// a new day starts with version 0, still a change for clients
	sc.advance(2 * time.Hour)
	hub.checkAndBroadcastVersion(ctx)

	update := receive(t, client)
	assert.Equal(t, "tournament_2024-05-02", update.TournamentID)
	assert.Zero(t, update.Version)
}

func TestHub_SourceErrorSkipsBroadcast(t *testing.T) {
	hub, versions, _, client := newTestHub(t)
	versions.err = errors.New("redis down")
	versions.set("tournament_2024-05-01", 1)

	hub.checkAndBroadcastVersion(context.Background())
	assert.Len(t, client.send, 0)
}

func TestHub_InitialVersion(t *testing.T) {
	hub, versions, _, client := newTestHub(t)
	versions.set("tournament_2024-05-01", 7)

	hub.sendInitialVersion(context.Background(), client)
	assert.Equal(t, int64(7), receive(t, client).Version)
	assert.Equal(t, 1, hub.GetClientCount())
}
