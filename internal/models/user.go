package models

import (
	"time"
)

// User maps an external payment-provider identity to an internal id
type User struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalID  string    `gorm:"uniqueIndex;not null" json:"external_id"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// TournamentRecord is the persisted header of one daily tournament
type TournamentRecord struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	StartTime      time.Time `gorm:"not null" json:"start_time"`
	EndTime        time.Time `gorm:"not null" json:"end_time"`
	PrizePoolCents int64     `gorm:"not null;default:0" json:"prize_pool_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (TournamentRecord) TableName() string {
	return "tournaments"
}

// GameEntry is one user's participation in one tournament.
// The composite unique index is what makes admission idempotent.
type GameEntry struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       string    `gorm:"type:uuid;not null;uniqueIndex:ux_game_entries_user_tournament,priority:1" json:"user_id"`
	TournamentID string    `gorm:"not null;index;uniqueIndex:ux_game_entries_user_tournament,priority:2" json:"tournament_id"`
	PaymentID    string    `gorm:"not null" json:"payment_id"`
	EntryTime    time.Time `gorm:"not null;index" json:"entry_time"`
	BestScore    int64     `gorm:"not null;default:0" json:"best_score"`
	UpdatedAt    time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for GORM
func (GameEntry) TableName() string {
	return "game_entries"
}

// TournamentResult is an archived final standing written after rollover
type TournamentResult struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	TournamentID   string    `gorm:"not null;uniqueIndex:ux_tournament_results_rank,priority:1" json:"tournament_id"`
	Rank           int       `gorm:"not null;uniqueIndex:ux_tournament_results_rank,priority:2" json:"rank"`
	ExternalUserID string    `gorm:"not null" json:"external_user_id"`
	PlayerName     string    `gorm:"not null" json:"player_name"`
	Score          int64     `gorm:"not null" json:"score"`
	PrizePoolCents int64     `gorm:"not null" json:"prize_pool_cents"`
	ArchivedAt     time.Time `json:"archived_at"`
}

// TableName specifies the table name for GORM
func (TournamentResult) TableName() string {
	return "tournament_results"
}
