package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"tournament-ledger/internal/clock"
	"tournament-ledger/internal/config"
	"tournament-ledger/internal/models"
	"tournament-ledger/internal/repository"
	"tournament-ledger/internal/service"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DefaultPlayers = 1000
	MaxScore       = 10000
	ProgressEvery  = 250
)

type seedPlayer struct {
	UserID    string
	UserName  string
	PaymentID string
	Score     int64
}

func main() {
	players := flag.Int("players", DefaultPlayers, "number of paid entries to create")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one)")
	flag.Parse()

	log.Println("🌱 Starting seeder for the daily tournament...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The seeder always writes to Postgres; an in-memory ledger would vanish on exit
	db, err := initPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	log.Println("✓ Connected to PostgreSQL")

	clk := clock.New()
	postgresRepo := repository.NewPostgresRepository(db, clk, cfg.Tournament.EntryFeeCents)
	defer postgresRepo.Close()

	if err := postgresRepo.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("✓ Database migrations completed")

	var redisRepo *repository.RedisRepository
	if cfg.Redis.Enabled {
		redisClient, err := initRedis(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("✓ Connected to Redis")
		redisRepo = repository.NewRedisRepository(redisClient)
		defer redisRepo.Close()
	}

	ctx := context.Background()
	now := clk.Now()
	tournamentID := clk.CurrentTournamentID(now)

	log.Printf("🌱 Generating %d players for %s...", *players, tournamentID)
	batch := generatePlayers(*players, *seed)

	log.Println("📦 Admitting players and recording scores...")
	start := time.Now()
	var prizePool int64
	for i, p := range batch {
		res, err := postgresRepo.Admit(ctx, tournamentID, p.UserID, p.UserName, p.PaymentID, now)
		if err != nil {
			log.Fatalf("Failed to admit %s: %v", p.UserID, err)
		}
		prizePool = res.PrizePoolCents

		if _, err := postgresRepo.RecordScore(ctx, tournamentID, p.UserID, p.Score, now); err != nil {
			log.Fatalf("Failed to record score for %s: %v", p.UserID, err)
		}

		if redisRepo != nil {
			entry, _, err := postgresRepo.Get(ctx, tournamentID, p.UserID)
			if err != nil {
				log.Fatalf("Failed to read entry %s: %v", p.UserID, err)
			}
			if err := redisRepo.UpsertStanding(ctx, tournamentID, entry); err != nil {
				log.Fatalf("Failed to mirror %s to Redis: %v", p.UserID, err)
			}
		}

		if (i+1)%ProgressEvery == 0 {
			log.Printf("  ✓ %d/%d players", i+1, len(batch))
		}
	}

	log.Printf("✅ Seeding completed in %v", time.Since(start))
	log.Printf("💰 Prize pool: $%.2f", models.CentsToDollars(prizePool))

	view := service.NewLeaderboardView(postgresRepo, cfg.Tournament.LeaderboardSize)
	top, err := view.TopN(ctx, tournamentID, 10)
	if err != nil {
		log.Fatalf("Failed to load leaderboard: %v", err)
	}
	printTop("Ledger", top)

	if redisRepo != nil {
		mirrored, err := redisRepo.GetTopUsers(ctx, tournamentID, 10)
		if err != nil {
			log.Fatalf("Failed to load Redis leaderboard: %v", err)
		}
		printTop("Redis mirror", mirrored)
	}
}

// generatePlayers creates fake paid players with a random score each
func generatePlayers(count int, seed uint64) []seedPlayer {
	faker := gofakeit.New(seed)
	players := make([]seedPlayer, count)
	for i := range players {
		players[i] = seedPlayer{
			UserID:    "user_" + uuid.NewString()[:8],
			UserName:  faker.Username(),
			PaymentID: "pay_" + uuid.NewString(),
			Score:     int64(faker.IntRange(1, MaxScore)),
		}
	}
	return players
}

func printTop(source string, entries []models.LeaderboardEntry) {
	fmt.Printf("\n📊 Top %d (%s):\n", len(entries), source)
	for i, e := range entries {
		fmt.Printf("  %2d. %-24s %6d\n", i+1, e.PlayerName, e.Score)
	}
}

// initPostgres initializes PostgreSQL connection
func initPostgres(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// initRedis initializes Redis connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
