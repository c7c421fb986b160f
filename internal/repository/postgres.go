package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tournament-ledger/internal/clock"
	"tournament-ledger/internal/ledger"
	"tournament-ledger/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresRepository is the durable ledger. The unique index on
// game_entries(user_id, tournament_id) backs idempotent admission.
type PostgresRepository struct {
	db            *gorm.DB
	clock         *clock.Clock
	entryFeeCents int64
}

// NewPostgresRepository creates a new Postgres-backed ledger
func NewPostgresRepository(db *gorm.DB, c *clock.Clock, entryFeeCents int64) *PostgresRepository {
	return &PostgresRepository{
		db:            db,
		clock:         c,
		entryFeeCents: entryFeeCents,
	}
}

// entryRow is the joined view of a game entry and its user
type entryRow struct {
	ExternalID  string
	DisplayName string
	PaymentID   string
	EntryTime   time.Time
	BestScore   int64
}

func (r entryRow) toEntry() models.Entry {
	return models.Entry{
		UserID:    r.ExternalID,
		UserName:  r.DisplayName,
		PaymentID: r.PaymentID,
		EntryTime: r.EntryTime,
		BestScore: r.BestScore,
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ledger.ErrStorageUnavailable, op, err)
}

// Admit implements ledger.Ledger in a single transaction
func (r *PostgresRepository) Admit(ctx context.Context, tournamentID, userID, userName, paymentID string, now time.Time) (ledger.AdmitResult, error) {
	if userID == "" {
		return ledger.AdmitResult{}, errors.New("user id is required")
	}
	start, end, err := r.clock.WindowFor(tournamentID)
	if err != nil {
		return ledger.AdmitResult{}, err
	}
	if !r.clock.IsOpen(tournamentID, now) {
		return ledger.AdmitResult{}, ledger.ErrTournamentClosed
	}

	var result ledger.AdmitResult
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{
			ID:          uuid.NewString(),
			ExternalID:  userID,
			DisplayName: userName,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).Create(&user).Error; err != nil {
			return err
		}
		if err := tx.Where("external_id = ?", userID).First(&user).Error; err != nil {
			return err
		}

		record := models.TournamentRecord{ID: tournamentID, StartTime: start, EndTime: end}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
			return err
		}

		entry := models.GameEntry{
			UserID:       user.ID,
			TournamentID: tournamentID,
			PaymentID:    paymentID,
			EntryTime:    now,
		}
		res := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "tournament_id"}},
			DoNothing: true,
		}).Create(&entry)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 1 {
			result.Created = true
			if err := tx.Model(&models.TournamentRecord{}).
				Where("id = ?", tournamentID).
				Update("prize_pool_cents", gorm.Expr("prize_pool_cents + ?", r.entryFeeCents)).Error; err != nil {
				return err
			}
		} else if err := tx.Where("user_id = ? AND tournament_id = ?", user.ID, tournamentID).First(&entry).Error; err != nil {
			return err
		}

		if err := tx.Where("id = ?", tournamentID).First(&record).Error; err != nil {
			return err
		}

		result.PrizePoolCents = record.PrizePoolCents
		result.Entry = models.Entry{
			UserID:    user.ExternalID,
			UserName:  user.DisplayName,
			PaymentID: entry.PaymentID,
			EntryTime: entry.EntryTime,
			BestScore: entry.BestScore,
		}
		return nil
	})
	if err != nil {
		return ledger.AdmitResult{}, storageErr("admit", err)
	}
	return result, nil
}

// Get implements ledger.Ledger
func (r *PostgresRepository) Get(ctx context.Context, tournamentID, userID string) (models.Entry, bool, error) {
	if _, _, err := r.clock.WindowFor(tournamentID); err != nil {
		return models.Entry{}, false, err
	}

	var rows []entryRow
	err := r.entriesQuery(r.db.WithContext(ctx), tournamentID).
		Where("u.external_id = ?", userID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return models.Entry{}, false, storageErr("get entry", err)
	}
	if len(rows) == 0 {
		return models.Entry{}, false, nil
	}
	return rows[0].toEntry(), true, nil
}

// ListEntries implements ledger.Ledger
func (r *PostgresRepository) ListEntries(ctx context.Context, tournamentID string) ([]models.Entry, error) {
	snap, err := r.Snapshot(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return snap.Entries, nil
}

// RecordScore implements ledger.Ledger. The entry row is locked while the
// previous best is read; GREATEST keeps the update monotonic.
func (r *PostgresRepository) RecordScore(ctx context.Context, tournamentID, userID string, score int64, now time.Time) (ledger.ScoreUpdate, error) {
	if _, _, err := r.clock.WindowFor(tournamentID); err != nil {
		return ledger.ScoreUpdate{}, err
	}
	if !r.clock.IsOpen(tournamentID, now) {
		return ledger.ScoreUpdate{}, ledger.ErrTournamentClosed
	}

	var update ledger.ScoreUpdate
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := func(db *gorm.DB) *gorm.DB {
			return db.Where("tournament_id = ? AND user_id = (SELECT id FROM users WHERE external_id = ?)", tournamentID, userID)
		}

		var previous []int64
		if err := tx.Model(&models.GameEntry{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Scopes(scope).
			Pluck("best_score", &previous).Error; err != nil {
			return err
		}
		if len(previous) == 0 {
			return ledger.ErrNotEntered
		}

		update = ledger.ScoreUpdate{Previous: previous[0], Best: previous[0]}
		if score <= previous[0] {
			return nil
		}

		if err := tx.Model(&models.GameEntry{}).
			Scopes(scope).
			Update("best_score", gorm.Expr("GREATEST(best_score, ?)", score)).Error; err != nil {
			return err
		}
		update.Best = score
		return nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotEntered) {
			return ledger.ScoreUpdate{}, err
		}
		return ledger.ScoreUpdate{}, storageErr("record score", err)
	}
	return update, nil
}

// Snapshot implements ledger.Ledger with a read-only repeatable-read transaction
func (r *PostgresRepository) Snapshot(ctx context.Context, tournamentID string) (models.Snapshot, error) {
	start, end, err := r.clock.WindowFor(tournamentID)
	if err != nil {
		return models.Snapshot{}, err
	}

	snap := models.Snapshot{TournamentID: tournamentID, Start: start, End: end}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var records []models.TournamentRecord
		if err := tx.Where("id = ?", tournamentID).Limit(1).Find(&records).Error; err != nil {
			return err
		}
		if len(records) == 1 {
			snap.PrizePoolCents = records[0].PrizePoolCents
		}

		var rows []entryRow
		if err := r.entriesQuery(tx, tournamentID).Scan(&rows).Error; err != nil {
			return err
		}
		snap.Entries = make([]models.Entry, 0, len(rows))
		for _, row := range rows {
			snap.Entries = append(snap.Entries, row.toEntry())
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return models.Snapshot{}, storageErr("snapshot", err)
	}
	return snap, nil
}

func (r *PostgresRepository) entriesQuery(db *gorm.DB, tournamentID string) *gorm.DB {
	return db.Table("game_entries AS ge").
		Select("u.external_id, u.display_name, ge.payment_id, ge.entry_time, ge.best_score").
		Joins("JOIN users u ON u.id = ge.user_id").
		Where("ge.tournament_id = ?", tournamentID).
		Order("ge.entry_time ASC, ge.id ASC")
}

// SaveResults archives a finished tournament's final standings. Re-running it
// for the same tournament is a no-op.
func (r *PostgresRepository) SaveResults(ctx context.Context, tournamentID string, prizePoolCents int64, standings []models.LeaderboardEntry) error {
	if len(standings) == 0 {
		return nil
	}

	archivedAt := time.Now().UTC()
	results := make([]models.TournamentResult, 0, len(standings))
	for i, s := range standings {
		results = append(results, models.TournamentResult{
			TournamentID:   tournamentID,
			Rank:           i + 1,
			ExternalUserID: s.ID,
			PlayerName:     s.PlayerName,
			Score:          s.Score,
			PrizePoolCents: prizePoolCents,
			ArchivedAt:     archivedAt,
		})
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&results).Error
	if err != nil {
		return storageErr("save results", err)
	}
	return nil
}

// Ping checks if database is reachable
func (r *PostgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs database migrations
func (r *PostgresRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.TournamentRecord{},
		&models.GameEntry{},
		&models.TournamentResult{},
	)
}
