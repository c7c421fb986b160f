package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tournament-ledger/internal/api"
	"tournament-ledger/internal/api/handlers"
	"tournament-ledger/internal/api/middleware"
	"tournament-ledger/internal/clock"
	"tournament-ledger/internal/config"
	"tournament-ledger/internal/jobs"
	"tournament-ledger/internal/ledger"
	"tournament-ledger/internal/metrics"
	"tournament-ledger/internal/repository"
	"tournament-ledger/internal/service"
	"tournament-ledger/internal/signature"
	"tournament-ledger/internal/websocket"
	"tournament-ledger/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	mirrorWorkers   = 8
	mirrorQueueSize = 1000
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	clk := clock.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	health := service.NewHealthService()

	// Ledger: in-process by default, Postgres when configured
	var (
		l            ledger.Ledger
		memoryLedger *ledger.MemoryLedger
		postgresRepo *repository.PostgresRepository
	)
	switch cfg.Tournament.Backend {
	case config.BackendPostgres:
		db, err := initPostgres(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		log.Println("✓ Connected to PostgreSQL")

		postgresRepo = repository.NewPostgresRepository(db, clk, cfg.Tournament.EntryFeeCents)
		if err := postgresRepo.AutoMigrate(); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("✓ Database migrations completed")

		health.Register("postgres", postgresRepo)
		l = postgresRepo
	default:
		memoryLedger = ledger.NewMemoryLedger(clk, cfg.Tournament.EntryFeeCents)
		l = memoryLedger
		log.Println("✓ Using in-memory ledger")
	}

	// Standing changes feed the Redis mirror when enabled, else a local counter
	var (
		publisher     service.StandingPublisher
		versions      websocket.VersionSource
		localVersions *service.LocalVersions
		redisRepo     *repository.RedisRepository
		mirrorPool    *worker.WorkerPool
	)
	if cfg.Redis.Enabled {
		redisClient, err := initRedis(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("✓ Connected to Redis")

		redisRepo = repository.NewRedisRepository(redisClient)
		health.Register("redis", redisRepo)

		mirrorPool = worker.NewWorkerPool(mirrorWorkers, mirrorQueueSize, redisRepo, m)
		mirrorPool.Start()

		publisher = mirrorPool
		versions = redisRepo
	} else {
		localVersions = service.NewLocalVersions()
		publisher = localVersions
		versions = localVersions
	}

	if cfg.Webhook.Secret == "" {
		log.Println("⚠️ WHOP_WEBHOOK_SECRET is empty, every webhook will be rejected")
	}

	verifier := signature.Verifier{Tolerance: cfg.Webhook.Tolerance}
	ingestor := service.NewWebhookIngestor(l, clk, verifier, publisher, m, logger)
	scores := service.NewScoreTracker(l, publisher, m, logger)
	leaderboard := service.NewLeaderboardView(l, cfg.Tournament.LeaderboardSize)
	status := service.NewStatusReporter(l, clk, cfg.Tournament.LeaderboardSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub(versions, clk)
	go hub.Run(ctx)

	// Daily archiver
	archiverCfg := jobs.ArchiverConfig{
		Ledger:        l,
		Clock:         clk,
		Metrics:       m,
		Size:          cfg.Tournament.LeaderboardSize,
		RetentionDays: cfg.Jobs.RetentionDays,
	}
	if postgresRepo != nil {
		archiverCfg.Store = postgresRepo
	}
	if memoryLedger != nil {
		archiverCfg.Pruner = memoryLedger
	}
	if localVersions != nil {
		archiverCfg.Versions = localVersions
	}
	archiver := jobs.NewArchiver(archiverCfg)
	if err := archiver.Start(); err != nil {
		log.Fatalf("Failed to start archiver: %v", err)
	}

	// Demo traffic
	simulator := jobs.NewSimulationManager(ingestor, scores, clk, cfg.Webhook.Secret, jobs.SimulatorConfig{
		TickInterval:   500 * time.Millisecond,
		UpdatesPerTick: 1,
	})
	if cfg.Jobs.SimulatorEnabled {
		if cfg.Webhook.Secret == "" {
			log.Println("⚠️ Simulator needs WHOP_WEBHOOK_SECRET, not starting")
		} else if err := simulator.Start(ctx); err != nil {
			log.Printf("⚠️ Failed to start simulator: %v", err)
		}
	}

	deps := api.Deps{
		Tournament: handlers.NewTournamentHandler(clk, scores, leaderboard, status),
		Webhook:    handlers.NewWebhookHandler(ingestor, cfg.Webhook.Secret, cfg.Webhook.SignatureHeader, clk.Now),
		Health:     handlers.NewHealthHandler(health),
		Hub:        hub,
		Identity: middleware.IdentityConfig{
			JWTSecret:     cfg.Auth.JWTSecret,
			DefaultUserID: cfg.Auth.DefaultUserID,
		},
		Gatherer:       reg,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AccessLog:      true,
	}
	if cfg.Auth.ScoreRateLimit > 0 {
		deps.ScoreLimiter = middleware.NewCallerRateLimiter(rate.Limit(cfg.Auth.ScoreRateLimit), cfg.Auth.ScoreRateBurst)
	}
	if cfg.Server.DebugRoutes {
		deps.Debug = handlers.NewDebugHandler(simulator)
	}
	app := api.NewApp(deps)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("🛑 Shutting down server...")

		simulator.Stop()
		if err := archiver.Stop(); err != nil {
			log.Printf("Archiver shutdown error: %v", err)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
		cancel()

		if mirrorPool != nil {
			log.Println("🔄 Flushing mirror pool...")
			if err := mirrorPool.Shutdown(10 * time.Second); err != nil {
				log.Printf("Mirror pool shutdown error: %v", err)
			}
		}
		if postgresRepo != nil {
			if err := postgresRepo.Close(); err != nil {
				log.Printf("Error closing PostgreSQL: %v", err)
			}
		}
		if redisRepo != nil {
			if err := redisRepo.Close(); err != nil {
				log.Printf("Error closing Redis: %v", err)
			}
		}

		log.Println("✓ Server shutdown complete")
	}()

	port := cfg.Server.Port
	log.Printf("🚀 Server starting on port %d (ledger: %s, tournament: %s)",
		port, cfg.Tournament.Backend, clk.CurrentTournamentID(clk.Now()))
	if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// initPostgres initializes PostgreSQL connection with connection pooling
func initPostgres(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// initRedis initializes Redis connection with connection pooling
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
