package models

import "time"

// Registration = tournament entry + live chip state for one player
type Registration struct {
	ID            string `gorm:"primaryKey" json:"id"`
	TournamentID  string `gorm:"not null;uniqueIndex:idx_registration_player" json:"tournament_id"`
	PlayerID      string `gorm:"not null;uniqueIndex:idx_registration_player" json:"player_id"`
	IsArrived     bool   `json:"is_arrived"`
	IsActive      bool   `json:"is_active"` // false once eliminated
	PaymentMethod string `json:"payment_method,omitempty" gorm:"type:varchar(32)"`
	CurrentStack  int64  `json:"current_stack"`
	RebuyCount    int    `json:"rebuy_count"`
	AddonCount    int    `json:"addon_count"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Player Player `json:"player,omitempty" gorm:"foreignKey:PlayerID"`
}
