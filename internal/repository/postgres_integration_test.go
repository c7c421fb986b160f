//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tournament-ledger/internal/clock"
	"tournament-ledger/internal/ledger"
	"tournament-ledger/internal/models"
)

func setupPostgres(t *testing.T) *PostgresRepository {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("tournament"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	repo := NewPostgresRepository(db, clock.New(), 200)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func TestPostgresRepository_Ledger(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()
	c := clock.New()
	now := time.Now().UTC()
	tid := c.CurrentTournamentID(now)

	t.Run("concurrent duplicate admissions create one entry", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Admit(ctx, tid, "u1", "Ann", "pay_1", now)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		snap, err := repo.Snapshot(ctx, tid)
		require.NoError(t, err)
		require.Len(t, snap.Entries, 1)
		assert.Equal(t, int64(200), snap.PrizePoolCents)
		assert.Equal(t, "Ann", snap.Entries[0].UserName)
	})

	t.Run("scores are monotonic", func(t *testing.T) {
		for _, tc := range []struct {
			score    int64
			improved bool
		}{{50, true}, {30, false}, {80, true}, {80, false}} {
			update, err := repo.RecordScore(ctx, tid, "u1", tc.score, now)
			require.NoError(t, err)
			assert.Equal(t, tc.improved, update.Improved(), "score %d", tc.score)
		}
		entry, ok, err := repo.Get(ctx, tid, "u1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(80), entry.BestScore)
	})

	t.Run("unknown user cannot score", func(t *testing.T) {
		_, err := repo.RecordScore(ctx, tid, "u2", 10, now)
		assert.ErrorIs(t, err, ledger.ErrNotEntered)

		_, ok, err := repo.Get(ctx, tid, "u2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("results archive is idempotent", func(t *testing.T) {
		standings := []models.LeaderboardEntry{{ID: "u1", PlayerName: "Ann", Score: 80}}
		require.NoError(t, repo.SaveResults(ctx, tid, 200, standings))
		require.NoError(t, repo.SaveResults(ctx, tid, 200, standings))

		var count int64
		require.NoError(t, repo.db.Model(&models.TournamentResult{}).Where("tournament_id = ?", tid).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}
