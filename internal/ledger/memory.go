package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"tournament-ledger/internal/clock"
	"tournament-ledger/internal/models"
)

// book is the state of one tournament. Its mutex serializes every admission
// and score update for that tournament.
type book struct {
	mu             sync.RWMutex
	start          time.Time
	end            time.Time
	prizePoolCents int64
	entries        []models.Entry
	index          map[string]int
}

// MemoryLedger keeps tournaments in process memory
type MemoryLedger struct {
	clock         *clock.Clock
	entryFeeCents int64

	// mu guards the books map only, never a book's contents
	mu    sync.Mutex
	books map[string]*book
}

// NewMemoryLedger creates an in-memory ledger charging entryFeeCents per admission
func NewMemoryLedger(c *clock.Clock, entryFeeCents int64) *MemoryLedger {
	return &MemoryLedger{
		clock:         c,
		entryFeeCents: entryFeeCents,
		books:         make(map[string]*book),
	}
}

// bookFor returns the tournament's book, creating it on first access.
// Only admissions create books.
func (l *MemoryLedger) bookFor(tournamentID string) (*book, error) {
	start, end, err := l.clock.WindowFor(tournamentID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.books[tournamentID]; ok {
		return b, nil
	}

	b := &book{
		start: start,
		end:   end,
		index: make(map[string]int),
	}
	// Callers may hand us views of request buffers
	l.books[strings.Clone(tournamentID)] = b
	return b, nil
}

// lookup returns the tournament's book without creating it
func (l *MemoryLedger) lookup(tournamentID string) (*book, bool, error) {
	if _, _, err := l.clock.WindowFor(tournamentID); err != nil {
		return nil, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.books[tournamentID]
	return b, ok, nil
}

// Admit implements Ledger
func (l *MemoryLedger) Admit(ctx context.Context, tournamentID, userID, userName, paymentID string, now time.Time) (AdmitResult, error) {
	if userID == "" {
		return AdmitResult{}, errors.New("user id is required")
	}
	if _, _, err := l.clock.WindowFor(tournamentID); err != nil {
		return AdmitResult{}, err
	}
	if !l.clock.IsOpen(tournamentID, now) {
		return AdmitResult{}, ErrTournamentClosed
	}
	b, err := l.bookFor(tournamentID)
	if err != nil {
		return AdmitResult{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if i, ok := b.index[userID]; ok {
		return AdmitResult{Created: false, Entry: b.entries[i], PrizePoolCents: b.prizePoolCents}, nil
	}

	entry := models.Entry{
		UserID:    strings.Clone(userID),
		UserName:  strings.Clone(userName),
		PaymentID: strings.Clone(paymentID),
		EntryTime: now,
	}
	b.index[entry.UserID] = len(b.entries)
	b.entries = append(b.entries, entry)
	b.prizePoolCents += l.entryFeeCents

	return AdmitResult{Created: true, Entry: entry, PrizePoolCents: b.prizePoolCents}, nil
}

// Get implements Ledger
func (l *MemoryLedger) Get(ctx context.Context, tournamentID, userID string) (models.Entry, bool, error) {
	b, ok, err := l.lookup(tournamentID)
	if err != nil || !ok {
		return models.Entry{}, false, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	i, ok := b.index[userID]
	if !ok {
		return models.Entry{}, false, nil
	}
	return b.entries[i], true, nil
}

// ListEntries implements Ledger
func (l *MemoryLedger) ListEntries(ctx context.Context, tournamentID string) ([]models.Entry, error) {
	snap, err := l.Snapshot(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return snap.Entries, nil
}

// RecordScore implements Ledger
func (l *MemoryLedger) RecordScore(ctx context.Context, tournamentID, userID string, score int64, now time.Time) (ScoreUpdate, error) {
	b, found, err := l.lookup(tournamentID)
	if err != nil {
		return ScoreUpdate{}, err
	}
	if !l.clock.IsOpen(tournamentID, now) {
		return ScoreUpdate{}, ErrTournamentClosed
	}
	if !found {
		return ScoreUpdate{}, ErrNotEntered
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	i, ok := b.index[userID]
	if !ok {
		return ScoreUpdate{}, ErrNotEntered
	}
	update := ScoreUpdate{Previous: b.entries[i].BestScore}
	if score > b.entries[i].BestScore {
		b.entries[i].BestScore = score
	}
	update.Best = b.entries[i].BestScore
	return update, nil
}

// Snapshot implements Ledger
func (l *MemoryLedger) Snapshot(ctx context.Context, tournamentID string) (models.Snapshot, error) {
	b, ok, err := l.lookup(tournamentID)
	if err != nil {
		return models.Snapshot{}, err
	}
	if !ok {
		start, end, _ := l.clock.WindowFor(tournamentID)
		return models.Snapshot{
			TournamentID: tournamentID,
			Start:        start,
			End:          end,
			Entries:      []models.Entry{},
		}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := make([]models.Entry, len(b.entries))
	copy(entries, b.entries)

	return models.Snapshot{
		TournamentID:   tournamentID,
		Start:          b.start,
		End:            b.end,
		PrizePoolCents: b.prizePoolCents,
		Entries:        entries,
	}, nil
}

// Prune drops tournaments whose window ended before cutoff and returns how
// many were removed.
func (l *MemoryLedger) Prune(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, b := range l.books {
		if b.end.Before(cutoff) {
			delete(l.books, id)
			removed++
		}
	}
	return removed
}

// TournamentCount returns how many tournaments are held in memory
func (l *MemoryLedger) TournamentCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.books)
}
