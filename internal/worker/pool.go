package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tournament-ledger/internal/metrics"
	"tournament-ledger/internal/models"
)

// ErrQueueFull is returned by Submit when the queue has no room
var ErrQueueFull = errors.New("worker pool queue full (backpressure)")

// Sink receives mirrored standings. The Redis repository is the production sink.
type Sink interface {
	UpsertStanding(ctx context.Context, tournamentID string, entry models.Entry) error
}

// MirrorTask represents one standing change to copy into the mirror
type MirrorTask struct {
	TournamentID string
	Entry        models.Entry
}

// WorkerPool mirrors standing changes asynchronously so request paths never
// wait on the mirror.
type WorkerPool struct {
	jobs        chan MirrorTask
	workerCount int
	sink        Sink
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	stats       *PoolMetrics
	metrics     *metrics.Metrics
	taskTimeout time.Duration

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// PoolMetrics tracks worker pool performance
type PoolMetrics struct {
	mu              sync.RWMutex
	processed       int64
	failed          int64
	backpressure    int64
	totalProcessing time.Duration
}

// NewWorkerPool creates a new worker pool. m may be nil.
func NewWorkerPool(workerCount, queueSize int, sink Sink, m *metrics.Metrics) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	return &WorkerPool{
		jobs:        make(chan MirrorTask, queueSize),
		workerCount: workerCount,
		sink:        sink,
		ctx:         ctx,
		cancel:      cancel,
		stats:       &PoolMetrics{},
		metrics:     m,
		taskTimeout: 5 * time.Second,
	}
}

// Start initializes and starts all worker goroutines
func (wp *WorkerPool) Start() {
	log.Printf("🚀 Starting mirror pool with %d workers and queue size %d", wp.workerCount, cap(wp.jobs))

	for i := 1; i <= wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return

		case task, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.processTask(id, task)
		}
	}
}

// processTask mirrors a single standing with panic recovery
func (wp *WorkerPool) processTask(workerID int, task MirrorTask) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️  Worker #%d PANIC recovered: %v (user: %s)", workerID, r, task.Entry.UserID)
			wp.stats.incrementFailed()
			wp.metrics.MirrorTask("failed")
		}
	}()

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(wp.ctx, wp.taskTimeout)
	defer cancel()

	err := wp.sink.UpsertStanding(ctx, task.TournamentID, task.Entry)
	if err != nil {
		log.Printf("❌ Worker #%d failed to mirror %s in %s: %v",
			workerID, task.Entry.UserID, task.TournamentID, err)
		wp.stats.incrementFailed()
		wp.metrics.MirrorTask("failed")
		return
	}

	wp.stats.recordSuccess(time.Since(startTime))
	wp.metrics.MirrorTask("processed")
}

// Submit attempts to add a task to the queue without blocking
func (wp *WorkerPool) Submit(task MirrorTask) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return fmt.Errorf("worker pool is shut down")
	}

	select {
	case wp.jobs <- task:
		return nil

	default:
		log.Printf("⚠️  BACKPRESSURE WARNING: Queue full, dropping mirror write for user %s", task.Entry.UserID)
		wp.stats.incrementBackpressure()
		wp.metrics.MirrorTask("dropped")
		return ErrQueueFull
	}
}

// PublishStanding queues a standing change. Dropped mirror writes are only
// logged since the ledger stays authoritative.
func (wp *WorkerPool) PublishStanding(tournamentID string, entry models.Entry) {
	_ = wp.Submit(MirrorTask{TournamentID: tournamentID, Entry: entry})
}

// Shutdown stops accepting tasks and drains the queue within timeout
func (wp *WorkerPool) Shutdown(timeout time.Duration) error {
	log.Printf("🛑 Shutting down mirror pool...")

	wp.closeOnce.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.jobs)
		wp.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		wp.printMetrics()
		return nil

	case <-time.After(timeout):
		wp.cancel()
		log.Printf("⚠️  Mirror pool shutdown timed out after %v", timeout)
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// GetMetrics returns a snapshot of the pool metrics
func (wp *WorkerPool) GetMetrics() map[string]interface{} {
	wp.stats.mu.RLock()
	defer wp.stats.mu.RUnlock()

	avgProcessing := time.Duration(0)
	if wp.stats.processed > 0 {
		avgProcessing = wp.stats.totalProcessing / time.Duration(wp.stats.processed)
	}

	return map[string]interface{}{
		"processed":           wp.stats.processed,
		"failed":              wp.stats.failed,
		"backpressure_events": wp.stats.backpressure,
		"avg_processing_time": avgProcessing.String(),
		"queue_utilization":   fmt.Sprintf("%d/%d", len(wp.jobs), cap(wp.jobs)),
	}
}

func (wp *WorkerPool) printMetrics() {
	m := wp.GetMetrics()
	log.Printf("📊 Mirror pool: processed=%v failed=%v backpressure=%v avg=%v",
		m["processed"], m["failed"], m["backpressure_events"], m["avg_processing_time"])
}

func (pm *PoolMetrics) recordSuccess(duration time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.processed++
	pm.totalProcessing += duration
}

func (pm *PoolMetrics) incrementFailed() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.failed++
}

func (pm *PoolMetrics) incrementBackpressure() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.backpressure++
}
