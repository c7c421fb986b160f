package service

import (
	"context"
	"time"
)

// Pinger is a dependency that can report its reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService checks the service's backing stores
type HealthService struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewHealthService creates a health service with no checks
func NewHealthService() *HealthService {
	return &HealthService{
		checks:  make(map[string]Pinger),
		timeout: 2 * time.Second,
	}
}

// Register adds a named dependency check
func (h *HealthService) Register(name string, p Pinger) {
	h.checks[name] = p
}

// Check pings every registered dependency. It reports "connected" or the
// error text per dependency, and whether all of them are healthy.
func (h *HealthService) Check(ctx context.Context) (map[string]string, bool) {
	results := make(map[string]string, len(h.checks))
	healthy := true
	for name, p := range h.checks {
		pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := p.Ping(pingCtx)
		cancel()

		if err != nil {
			results[name] = "disconnected: " + err.Error()
			healthy = false
			continue
		}
		results[name] = "connected"
	}
	return results, healthy
}
