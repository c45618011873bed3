package models

import "time"

const (
	OperationBuyIn   = "BUYIN"
	OperationRebuy   = "REBUY"
	OperationAddon   = "ADDON"
	OperationPrize   = "PRIZE"
	OperationDeposit = "DEPOSIT"
)

// DepositBalance is the player's club deposit. Only the ledger mutates it.
type DepositBalance struct {
	PlayerID  string    `gorm:"primaryKey" json:"player_id"`
	Balance   int64     `gorm:"not null" json:"balance"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Operation is an immutable ledger record; rows are never updated.
type Operation struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	PlayerID     string    `gorm:"not null;index" json:"player_id"`
	TournamentID *string   `gorm:"index" json:"tournament_id,omitempty"`
	Type         string    `gorm:"type:varchar(16);not null" json:"type"`
	Amount       int64     `gorm:"not null" json:"amount"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

const FinalTablePositions = 9

// Result is written once per player per tournament.
type Result struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	TournamentID   string    `gorm:"not null;uniqueIndex:idx_result_player" json:"tournament_id"`
	PlayerID       string    `gorm:"not null;uniqueIndex:idx_result_player" json:"player_id"`
	FinishPosition int       `json:"finish_position"`
	IsFinalTable   bool      `json:"is_final_table"`
	PrizeAmount    int64     `json:"prize_amount"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// All lists every table for AutoMigrate.
func All() []any {
	return []any{
		&Player{},
		&DepositBalance{},
		&Operation{},
		&ClubTable{},
		&BlindStructure{},
		&BlindLevel{},
		&Tournament{},
		&Registration{},
		&LiveState{},
		&TournamentTable{},
		&Seat{},
		&Result{},
	}
}
