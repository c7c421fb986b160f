package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"tournament-ledger/internal/clock"
	"tournament-ledger/internal/ledger"
	"tournament-ledger/internal/service"
	"tournament-ledger/internal/signature"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// Ingestor applies signed payment webhooks
type Ingestor interface {
	Ingest(ctx context.Context, rawBody []byte, signatureHeader, secret string, now time.Time) (service.IngestResult, error)
}

// ScoreSubmitter records scores
type ScoreSubmitter interface {
	Submit(ctx context.Context, tournamentID, userID string, score int64, now time.Time) (int64, error)
}

type demoPlayer struct {
	ID       string
	Username string
	Email    string
}

// SimulationManager drives demo traffic through the same paths real players
// use: signed payment webhooks for entry, the score tracker for play.
type SimulationManager struct {
	ingestor Ingestor
	scores   ScoreSubmitter
	clock    *clock.Clock
	secret   string

	fakerMu sync.Mutex
	faker   *gofakeit.Faker

	playersMu sync.RWMutex
	players   []demoPlayer

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// Metrics
	admissions   atomic.Int64
	totalUpdates atomic.Int64
	successCount atomic.Int64
	errorCount   atomic.Int64
	startTime    time.Time

	tickInterval   time.Duration
	updatesPerTick int
	initialPlayers int
	maxScore       int
}

// SimulatorConfig holds configuration for the simulator
type SimulatorConfig struct {
	TickInterval   time.Duration // Default: 500ms
	UpdatesPerTick int           // Default: 1
	InitialPlayers int           // Default: 20
	MaxScore       int           // Default: 10000
	Seed           uint64        // 0 picks a random seed
}

// NewSimulationManager creates a new simulation manager. secret must be the
// webhook secret the ingestor verifies against.
func NewSimulationManager(ingestor Ingestor, scores ScoreSubmitter, c *clock.Clock, secret string, config SimulatorConfig) *SimulationManager {
	if config.TickInterval <= 0 {
		config.TickInterval = 500 * time.Millisecond
	}
	if config.UpdatesPerTick <= 0 {
		config.UpdatesPerTick = 1
	}
	if config.InitialPlayers <= 0 {
		config.InitialPlayers = 20
	}
	if config.MaxScore <= 0 {
		config.MaxScore = 10000
	}

	return &SimulationManager{
		ingestor:       ingestor,
		scores:         scores,
		clock:          c,
		secret:         secret,
		faker:          gofakeit.New(config.Seed),
		stopCh:         make(chan struct{}),
		tickInterval:   config.TickInterval,
		updatesPerTick: config.UpdatesPerTick,
		initialPlayers: config.InitialPlayers,
		maxScore:       config.MaxScore,
	}
}

// Start admits the initial demo players and begins the simulation loop
func (sm *SimulationManager) Start(ctx context.Context) error {
	if sm.running.Load() {
		return fmt.Errorf("simulation already running")
	}

	admitted, err := sm.AdmitPlayers(ctx, sm.initialPlayers)
	if err != nil {
		return fmt.Errorf("failed to admit demo players: %w", err)
	}

	sm.startTime = time.Now()
	sm.running.Store(true)

	log.Printf("🚀 Simulation Manager Started")
	log.Printf("   - Players: %d", admitted)
	log.Printf("   - Tick Interval: %v", sm.tickInterval)
	log.Printf("   - Updates per Tick: %d", sm.updatesPerTick)
	log.Printf("   - Score Range: [0, %d]", sm.maxScore)

	sm.wg.Add(2)
	go sm.simulationLoop(ctx)
	go sm.metricsReporter(ctx)

	return nil
}

// Stop gracefully stops the simulation
func (sm *SimulationManager) Stop() {
	if !sm.running.CompareAndSwap(true, false) {
		return
	}

	log.Println("⏹️ Stopping Simulation Manager...")
	close(sm.stopCh)
	sm.wg.Wait()

	log.Println("✅ Simulation Manager Stopped")
	log.Printf("   - Admissions: %d", sm.admissions.Load())
	log.Printf("   - Score Updates: %d (errors: %d)", sm.totalUpdates.Load(), sm.errorCount.Load())
	log.Printf("   - Duration: %v", time.Since(sm.startTime).Round(time.Second))
}

// IsRunning returns whether the simulation is currently running
func (sm *SimulationManager) IsRunning() bool {
	return sm.running.Load()
}

// GetMetrics returns current simulation metrics
func (sm *SimulationManager) GetMetrics() map[string]interface{} {
	sm.playersMu.RLock()
	players := len(sm.players)
	sm.playersMu.RUnlock()

	return map[string]interface{}{
		"running":       sm.running.Load(),
		"players":       players,
		"admissions":    sm.admissions.Load(),
		"total_updates": sm.totalUpdates.Load(),
		"successful":    sm.successCount.Load(),
		"errors":        sm.errorCount.Load(),
	}
}

// AdmitPlayers creates n demo players and pays their entry through the
// signed webhook path. It returns how many were admitted.
func (sm *SimulationManager) AdmitPlayers(ctx context.Context, n int) (int, error) {
	admitted, err := sm.admit(ctx, n)
	return len(admitted), err
}

// admit returns exactly the players this call paid for, even when other
// callers add players concurrently.
func (sm *SimulationManager) admit(ctx context.Context, n int) ([]demoPlayer, error) {
	admitted := make([]demoPlayer, 0, n)
	for i := 0; i < n; i++ {
		p := sm.newPlayer()
		if err := sm.pay(ctx, p); err != nil {
			return admitted, err
		}
		sm.playersMu.Lock()
		sm.players = append(sm.players, p)
		sm.playersMu.Unlock()
		admitted = append(admitted, p)
	}
	return admitted, nil
}

// SimulateBurst admits n players and submits one random score for each
func (sm *SimulationManager) SimulateBurst(ctx context.Context, n int) (int, error) {
	admitted, err := sm.admit(ctx, n)
	if err != nil {
		return len(admitted), err
	}

	for _, p := range admitted {
		if err := sm.play(ctx, p); err != nil {
			return len(admitted), err
		}
	}
	return len(admitted), nil
}

func (sm *SimulationManager) newPlayer() demoPlayer {
	sm.fakerMu.Lock()
	defer sm.fakerMu.Unlock()
	return demoPlayer{
		ID:       "demo_" + sm.faker.Numerify("########"),
		Username: sm.faker.Username(),
		Email:    sm.faker.Email(),
	}
}

func (sm *SimulationManager) randomScore() int64 {
	sm.fakerMu.Lock()
	defer sm.fakerMu.Unlock()
	return int64(sm.faker.Number(0, sm.maxScore))
}

// pay sends a signed payment.succeeded webhook for p
func (sm *SimulationManager) pay(ctx context.Context, p demoPlayer) error {
	body, err := PaymentWebhookBody("pay_demo_"+uuid.NewString(), p.ID, p.Username, p.Email)
	if err != nil {
		return err
	}

	now := sm.clock.Now()
	header := signature.SignTimestamped(body, strconv.FormatInt(now.Unix(), 10), sm.secret)

	_, err = sm.ingestor.Ingest(ctx, body, header, sm.secret, now)
	if err != nil {
		return err
	}
	sm.admissions.Add(1)
	return nil
}

// play submits a random score for p. After a rollover the player is not
// entered in the new tournament yet, so they pay again and retry.
func (sm *SimulationManager) play(ctx context.Context, p demoPlayer) error {
	score := sm.randomScore()
	now := sm.clock.Now()
	tournamentID := sm.clock.CurrentTournamentID(now)

	sm.totalUpdates.Add(1)
	_, err := sm.scores.Submit(ctx, tournamentID, p.ID, score, now)
	if errors.Is(err, ledger.ErrNotEntered) {
		if err = sm.pay(ctx, p); err == nil {
			_, err = sm.scores.Submit(ctx, tournamentID, p.ID, score, now)
		}
	}
	if err != nil {
		sm.errorCount.Add(1)
		return err
	}
	sm.successCount.Add(1)
	return nil
}

func (sm *SimulationManager) pick() (demoPlayer, bool) {
	sm.playersMu.RLock()
	defer sm.playersMu.RUnlock()
	if len(sm.players) == 0 {
		return demoPlayer{}, false
	}

	sm.fakerMu.Lock()
	i := sm.faker.Number(0, len(sm.players)-1)
	sm.fakerMu.Unlock()
	return sm.players[i], true
}

func (sm *SimulationManager) simulationLoop(ctx context.Context) {
	defer sm.wg.Done()

	ticker := time.NewTicker(sm.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Simulation context cancelled")
			return

		case <-sm.stopCh:
			return

		case <-ticker.C:
			for i := 0; i < sm.updatesPerTick; i++ {
				p, ok := sm.pick()
				if !ok {
					break
				}
				if err := sm.play(ctx, p); err != nil && sm.errorCount.Load()%100 == 1 {
					log.Printf("⚠️ Simulation error (total: %d): %v", sm.errorCount.Load(), err)
				}
			}
		}
	}
}

func (sm *SimulationManager) metricsReporter(ctx context.Context) {
	defer sm.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sm.stopCh:
			return
		case <-ticker.C:
			elapsed := time.Since(sm.startTime)
			total := sm.totalUpdates.Load()

			log.Printf("📊 Simulation Metrics:")
			log.Printf("   - Updates: %d (%.1f/sec)", total, float64(total)/elapsed.Seconds())
			log.Printf("   - Success: %d | Errors: %d", sm.successCount.Load(), sm.errorCount.Load())
			log.Printf("   - Uptime: %v", elapsed.Round(time.Second))
		}
	}
}

// PaymentWebhookBody builds a payment.succeeded event body in the provider's shape
func PaymentWebhookBody(paymentID, userID, username, email string) ([]byte, error) {
	event := map[string]interface{}{
		"type": service.EventPaymentSucceeded,
		"data": map[string]interface{}{
			"id": paymentID,
			"user": map[string]string{
				"id":       userID,
				"username": username,
				"email":    email,
			},
		},
	}
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal payment event: %w", err)
	}
	return body, nil
}
