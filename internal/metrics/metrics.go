// Package metrics exposes Prometheus counters for the tournament service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Webhook outcomes
const (
	OutcomeAdmitted  = "admitted"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Score submission results
const (
	ScoreImproved   = "improved"
	ScoreUnchanged  = "unchanged"
	ScoreNotEntered = "not_entered"
	ScoreInvalid    = "invalid"
	ScoreFailed     = "failed"
)

// Metrics holds the service's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	webhooks  *prometheus.CounterVec
	scores    *prometheus.CounterVec
	prizePool *prometheus.GaugeVec
	players   *prometheus.GaugeVec
	mirror    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tournament",
			Name:      "webhook_events_total",
			Help:      "Payment webhook deliveries by outcome.",
		}, []string{"outcome"}),
		scores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tournament",
			Name:      "score_submissions_total",
			Help:      "Score submissions by result.",
		}, []string{"result"}),
		prizePool: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tournament",
			Name:      "prize_pool_cents",
			Help:      "Prize pool of a tournament in cents.",
		}, []string{"tournament"}),
		players: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tournament",
			Name:      "players",
			Help:      "Admitted players of a tournament.",
		}, []string{"tournament"}),
		mirror: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tournament",
			Name:      "mirror_tasks_total",
			Help:      "Leaderboard mirror tasks by status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.webhooks, m.scores, m.prizePool, m.players, m.mirror)
	return m
}

// NewNoop returns metrics registered on a private registry, for tests and tools
func NewNoop() *Metrics {
	return New(prometheus.NewRegistry())
}

// WebhookEvent counts one webhook delivery
func (m *Metrics) WebhookEvent(outcome string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(outcome).Inc()
}

// ScoreSubmission counts one score submission
func (m *Metrics) ScoreSubmission(result string) {
	if m == nil {
		return
	}
	m.scores.WithLabelValues(result).Inc()
}

// TournamentAdmission records a tournament's pool after an admission and
// counts the player when the entry is new
func (m *Metrics) TournamentAdmission(tournamentID string, prizePoolCents int64, created bool) {
	if m == nil {
		return
	}
	m.prizePool.WithLabelValues(tournamentID).Set(float64(prizePoolCents))
	if created {
		m.players.WithLabelValues(tournamentID).Inc()
	}
}

// ForgetTournament drops per-tournament series after archival
func (m *Metrics) ForgetTournament(tournamentID string) {
	if m == nil {
		return
	}
	m.prizePool.DeleteLabelValues(tournamentID)
	m.players.DeleteLabelValues(tournamentID)
}

// MirrorTask counts one mirror task by status (processed, failed, dropped)
func (m *Metrics) MirrorTask(status string) {
	if m == nil {
		return
	}
	m.mirror.WithLabelValues(status).Inc()
}
