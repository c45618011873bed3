package models

import "time"

const (
	LiveStatusRunning = "RUNNING"
	LiveStatusPaused  = "PAUSED"
	LiveStatusBreak   = "BREAK"
)

// LiveState is the durable snapshot of a running clock. The cached Timer is
// authoritative for the per-second countdown; this row is refreshed on
// rollover, pause/resume, operator overrides and periodic reconciliation.
type LiveState struct {
	ID                        string    `json:"id" gorm:"primaryKey"`
	TournamentID              string    `json:"tournament_id" gorm:"not null;uniqueIndex"`
	CurrentLevelNumber        int       `json:"current_level_number"`
	LevelRemainingTimeSeconds int       `json:"level_remaining_time_seconds"`
	PlayersCount              int       `json:"players_count"`
	AverageStack              int64     `json:"average_stack"`
	IsPaused                  bool      `json:"is_paused"`
	Status                    string    `json:"status" gorm:"type:varchar(16)"`
	LastUpdated               time.Time `json:"last_updated"`
	CreatedAt                 time.Time `json:"created_at" gorm:"autoCreateTime"`
}
