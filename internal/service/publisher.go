package service

import "tournament-ledger/internal/models"

// StandingPublisher is notified when an entry's standing changes.
// Implementations must not block the caller.
type StandingPublisher interface {
	PublishStanding(tournamentID string, entry models.Entry)
}

type noopPublisher struct{}

func (noopPublisher) PublishStanding(string, models.Entry) {}

func publisherOrNoop(p StandingPublisher) StandingPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
