package models

// Player is a club member. Nickname is denormalized onto seats for display.
type Player struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Nickname string `gorm:"index;not null" json:"nickname"`
	Email    string `json:"email,omitempty"`

	Timestamps
}
