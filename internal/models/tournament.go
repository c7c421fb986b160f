package models

import (
	"encoding/json"
	"time"
)

// Entry is a user's admitted participation in a tournament
type Entry struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	PaymentID string    `json:"paymentId"`
	EntryTime time.Time `json:"entryTime"`
	BestScore int64     `json:"bestScore"`
}

// Snapshot is a consistent read of one tournament's ledger
type Snapshot struct {
	TournamentID   string
	Start          time.Time
	End            time.Time
	PrizePoolCents int64
	Entries        []Entry
}

// LeaderboardEntry represents a single ranked row of the leaderboard
type LeaderboardEntry struct {
	ID         string `json:"id"`
	PlayerName string `json:"playerName"`
	Score      int64  `json:"score"`
}

// PaymentEvent is the envelope delivered by the payment provider
type PaymentEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// PaymentData is the payload of a payment-succeeded event
type PaymentData struct {
	ID       string           `json:"id" validate:"required"`
	User     *PaymentUser     `json:"user,omitempty"`
	Metadata *PaymentMetadata `json:"metadata,omitempty"`
}

// PaymentUser carries the provider's view of the paying user
type PaymentUser struct {
	ID         string `json:"id,omitempty"`
	WhopUserID string `json:"whop_user_id,omitempty"`
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
}

// PaymentMetadata is caller-supplied checkout metadata
type PaymentMetadata struct {
	UserID string `json:"userId,omitempty"`
}

// ScoreRequest represents the request payload for submitting a score
type ScoreRequest struct {
	Score *int64 `json:"score" validate:"required,min=0"`
}

// StatusResponse is the tournament status returned to clients
type StatusResponse struct {
	TournamentID  string             `json:"tournamentId"`
	TimeRemaining string             `json:"timeRemaining"`
	PrizePool     float64            `json:"prizePool"`
	PlayerCount   int                `json:"playerCount"`
	UserBestScore int64              `json:"userBestScore"`
	HasEntered    bool               `json:"hasEntered"`
	Leaderboard   []LeaderboardEntry `json:"leaderboard"`
}

// LeaderboardResponse wraps a tournament's ranked view
type LeaderboardResponse struct {
	TournamentID string             `json:"tournamentId"`
	Data         []LeaderboardEntry `json:"data"`
	Limit        int                `json:"limit"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CentsToDollars converts a cent amount to its dollar value for display
func CentsToDollars(cents int64) float64 {
	return float64(cents) / 100
}
