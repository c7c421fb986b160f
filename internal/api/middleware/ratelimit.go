package middleware

import (
	"strings"
	"sync"
	"time"

	"tournament-ledger/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs.
	cleanupThreshold = 500
	// maxIdleAge is the duration after which an idle caller is eligible for cleanup.
	maxIdleAge = 10 * time.Minute
)

type callerEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// CallerRateLimiter keeps one token bucket per caller and prunes idle ones inline
type CallerRateLimiter struct {
	callers map[string]*callerEntry
	mu      sync.Mutex
	r       rate.Limit
	b       int
}

// NewCallerRateLimiter allows r events per second with bursts of b per caller
func NewCallerRateLimiter(r rate.Limit, b int) *CallerRateLimiter {
	return &CallerRateLimiter{
		callers: make(map[string]*callerEntry),
		r:       r,
		b:       b,
	}
}

// GetLimiter returns the limiter for key
func (l *CallerRateLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.callers) > cleanupThreshold {
		cutoff := time.Now().Add(-maxIdleAge)
		for k, e := range l.callers {
			if e.lastSeen.Before(cutoff) {
				delete(l.callers, k)
			}
		}
	}

	e, exists := l.callers[key]
	if !exists {
		e = &callerEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.callers[strings.Clone(key)] = e
	}
	e.lastSeen = time.Now()

	return e.limiter
}

// RateLimit rejects callers that exceed their budget with 429. Callers are
// keyed by the identity resolved earlier in the chain, else by IP.
func RateLimit(limiter *CallerRateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := UserID(c)
		if key == "" {
			key = "ip:" + c.IP()
		}

		if !limiter.GetLimiter(key).Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error:   "Too many requests",
				Message: "score submissions are rate limited",
			})
		}
		return c.Next()
	}
}
