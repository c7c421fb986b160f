package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"tournament-ledger/internal/clock"
	"tournament-ledger/internal/ledger"
	"tournament-ledger/internal/metrics"
	"tournament-ledger/internal/models"
	"tournament-ledger/internal/service"

	"github.com/go-co-op/gocron/v2"
)

// ResultStore persists final standings of a finished tournament
type ResultStore interface {
	SaveResults(ctx context.Context, tournamentID string, prizePoolCents int64, standings []models.LeaderboardEntry) error
}

// Pruner drops tournaments that ended before cutoff
type Pruner interface {
	Prune(cutoff time.Time) int
}

// Forgetter drops per-tournament state kept outside the ledger
type Forgetter interface {
	Forget(tournamentID string)
}

// ArchiverConfig wires the daily archiver. Store, Pruner and Versions are optional.
type ArchiverConfig struct {
	Ledger        ledger.Ledger
	Clock         *clock.Clock
	Store         ResultStore
	Pruner        Pruner
	Versions      Forgetter
	Metrics       *metrics.Metrics
	Size          int
	RetentionDays int
}

// ArchiveSummary describes one archived tournament
type ArchiveSummary struct {
	TournamentID   string
	PrizePoolCents int64
	Players        int
	Standings      []models.LeaderboardEntry
}

// Archiver closes out the previous day's tournament shortly after midnight UTC
type Archiver struct {
	cfg       ArchiverConfig
	scheduler gocron.Scheduler
}

// NewArchiver creates a new archiver
func NewArchiver(cfg ArchiverConfig) *Archiver {
	if cfg.Size <= 0 {
		cfg.Size = service.DefaultLeaderboardSize
	}
	return &Archiver{cfg: cfg}
}

// Start schedules the daily run at 00:00:05 UTC
func (a *Archiver) Start() error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 5))),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			a.RunOnce(ctx)
		}),
		gocron.WithName("archive-previous-tournament"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule archiver: %w", err)
	}

	sched.Start()
	a.scheduler = sched
	log.Println("🗄️ Daily archiver scheduled at 00:00:05 UTC")
	return nil
}

// Stop shuts the scheduler down
func (a *Archiver) Stop() error {
	if a.scheduler == nil {
		return nil
	}
	return a.scheduler.Shutdown()
}

// RunOnce archives yesterday's tournament and prunes old ones
func (a *Archiver) RunOnce(ctx context.Context) {
	tournamentID := a.cfg.Clock.PreviousTournamentID(a.cfg.Clock.Now())

	summary, err := a.Archive(ctx, tournamentID)
	if err != nil {
		log.Printf("❌ [Archiver] %s: %v", tournamentID, err)
	} else {
		log.Printf("✅ [Archiver] %s closed: %d players, prize pool $%.2f",
			summary.TournamentID, summary.Players, models.CentsToDollars(summary.PrizePoolCents))
		for i, s := range summary.Standings {
			log.Printf("   #%d %s (%s) %d", i+1, s.PlayerName, s.ID, s.Score)
		}
	}

	if removed := a.Prune(); removed > 0 {
		log.Printf("🧹 [Archiver] pruned %d finished tournaments", removed)
	}
}

// Archive computes final standings of a finished tournament and stores them
func (a *Archiver) Archive(ctx context.Context, tournamentID string) (ArchiveSummary, error) {
	if a.cfg.Clock.IsOpen(tournamentID, a.cfg.Clock.Now()) {
		return ArchiveSummary{}, fmt.Errorf("tournament %s is still open", tournamentID)
	}

	snap, err := a.cfg.Ledger.Snapshot(ctx, tournamentID)
	if err != nil {
		return ArchiveSummary{}, err
	}

	summary := ArchiveSummary{
		TournamentID:   tournamentID,
		PrizePoolCents: snap.PrizePoolCents,
		Players:        len(snap.Entries),
		Standings:      service.Rank(snap.Entries, a.cfg.Size),
	}

	if a.cfg.Store != nil {
		if err := a.cfg.Store.SaveResults(ctx, tournamentID, snap.PrizePoolCents, summary.Standings); err != nil {
			return summary, err
		}
	}

	a.cfg.Metrics.ForgetTournament(tournamentID)
	if a.cfg.Versions != nil {
		a.cfg.Versions.Forget(tournamentID)
	}
	return summary, nil
}

// Prune drops in-memory tournaments older than the retention window
func (a *Archiver) Prune() int {
	if a.cfg.Pruner == nil || a.cfg.RetentionDays <= 0 {
		return 0
	}
	today, _, err := a.cfg.Clock.WindowFor(a.cfg.Clock.CurrentTournamentID(a.cfg.Clock.Now()))
	if err != nil {
		return 0
	}
	return a.cfg.Pruner.Prune(today.AddDate(0, 0, -a.cfg.RetentionDays))
}
