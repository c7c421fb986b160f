package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"tournament-ledger/internal/clock"
	"tournament-ledger/internal/ledger"
	"tournament-ledger/internal/models"
	"tournament-ledger/internal/signature"
)

const (
	testSecret = "whsec_test"
	testTS     = int64(1700000000)
)

var (
	// 2023-11-14T22:13:20Z
	testNow = time.Unix(testTS, 0).UTC()
	testTID = "tournament_2023-11-14"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []models.Entry
}

func (p *recordingPublisher) PublishStanding(_ string, entry models.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, entry)
}

func (p *recordingPublisher) entries() []models.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Entry(nil), p.published...)
}

// brokenLedger fails every call the way an unreachable database would
type brokenLedger struct{}

func (brokenLedger) err() error {
	return fmt.Errorf("%w: connection refused", ledger.ErrStorageUnavailable)
}

func (b brokenLedger) Admit(context.Context, string, string, string, string, time.Time) (ledger.AdmitResult, error) {
	return ledger.AdmitResult{}, b.err()
}

func (b brokenLedger) Get(context.Context, string, string) (models.Entry, bool, error) {
	return models.Entry{}, false, b.err()
}

func (b brokenLedger) ListEntries(context.Context, string) ([]models.Entry, error) {
	return nil, b.err()
}

func (b brokenLedger) RecordScore(context.Context, string, string, int64, time.Time) (ledger.ScoreUpdate, error) {
	return ledger.ScoreUpdate{}, b.err()
}

func (b brokenLedger) Snapshot(context.Context, string) (models.Snapshot, error) {
	return models.Snapshot{}, b.err()
}

type fixture struct {
	clock     *clock.Clock
	ledger    *ledger.MemoryLedger
	publisher *recordingPublisher
	ingestor  *WebhookIngestor
	scores    *ScoreTracker
	board     *LeaderboardView
	status    *StatusReporter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := clock.NewWithNow(func() time.Time { return testNow })
	l := ledger.NewMemoryLedger(c, 200)
	pub := &recordingPublisher{}
	logger := discardLogger()

	return &fixture{
		clock:     c,
		ledger:    l,
		publisher: pub,
		ingestor:  NewWebhookIngestor(l, c, signature.Verifier{}, pub, nil, logger),
		scores:    NewScoreTracker(l, pub, nil, logger),
		board:     NewLeaderboardView(l, 10),
		status:    NewStatusReporter(l, c, 10),
	}
}

// signed returns body with a timestamped signature header
func signed(body string) ([]byte, string) {
	raw := []byte(body)
	return raw, signature.SignTimestamped(raw, strconv.FormatInt(testTS, 10), testSecret)
}

// admit drives a payment for userID through the webhook path
func (f *fixture) admit(t *testing.T, userID, username string, now time.Time) IngestResult {
	t.Helper()
	body, header := signed(fmt.Sprintf(
		`{"type":"payment.succeeded","data":{"id":"pay_%s","user":{"id":%q,"username":%q}}}`,
		userID, userID, username))
	res, err := f.ingestor.Ingest(context.Background(), body, header, testSecret, now)
	if err != nil {
		t.Fatalf("admit %s: %v", userID, err)
	}
	return res
}
