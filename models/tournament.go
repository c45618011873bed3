package models

import (
	"time"
)

const (
	TournamentStatusAnnounced = "ANNOUNCED"
	TournamentStatusRegOpen   = "REG_OPEN"
	TournamentStatusLateReg   = "LATE_REG"
	TournamentStatusRunning   = "RUNNING"
	TournamentStatusFinished  = "FINISHED"
	TournamentStatusArchived  = "ARCHIVED"
)

const DefaultMaxSeatsPerTable = 9

// Tournament is owned by the administrative layer. The live engine only reads
// chip/cost parameters and writes CurrentLevelNumber and Status.
type Tournament struct {
	ID                 string  `json:"id" gorm:"primaryKey"`
	Name               string  `json:"name" gorm:"not null"`
	ClubID             *string `json:"club_id,omitempty" gorm:"index"`
	Status             string  `json:"status" gorm:"type:varchar(16);not null;index"`
	CurrentLevelNumber int     `json:"current_level_number"`
	BlindStructureID   *string `json:"blind_structure_id,omitempty" gorm:"index"`
	MaxSeatsPerTable   int     `json:"max_seats_per_table"`

	// Chips & costs
	StartingStack int64 `json:"starting_stack"`
	RebuyChips    int64 `json:"rebuy_chips"`
	RebuyCost     int64 `json:"rebuy_cost"`
	MaxRebuys     int   `json:"max_rebuys"` // 0 = unlimited
	AddonChips    int64 `json:"addon_chips"`
	AddonCost     int64 `json:"addon_cost"`
	MaxAddons     int   `json:"max_addons"` // 0 = unlimited

	StartTime time.Time `json:"start_time"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	BlindStructure *BlindStructure `json:"blind_structure,omitempty" gorm:"foreignKey:BlindStructureID"`
}

// SeatsPerTable returns the configured seat count, falling back to a full-ring table.
func (t *Tournament) SeatsPerTable() int {
	if t.MaxSeatsPerTable > 0 {
		return t.MaxSeatsPerTable
	}
	return DefaultMaxSeatsPerTable
}

// IsActive reports whether the tick scheduler should drive this tournament's clock.
func (t *Tournament) IsActive() bool {
	return t.Status == TournamentStatusRunning || t.Status == TournamentStatusLateReg
}

// BlindStructure is an ordered list of levels, read-only at runtime.
type BlindStructure struct {
	ID        string       `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"autoCreateTime"`
	Levels    []BlindLevel `json:"levels,omitempty" gorm:"foreignKey:StructureID"`
}

// BlindLevel is one timed stage of a structure. DurationMinutes may be unset.
type BlindLevel struct {
	ID              string `json:"id" gorm:"primaryKey"`
	StructureID     string `json:"structure_id" gorm:"not null;uniqueIndex:idx_structure_level"`
	LevelNumber     int    `json:"level_number" gorm:"not null;uniqueIndex:idx_structure_level"`
	SmallBlind      int64  `json:"small_blind"`
	BigBlind        int64  `json:"big_blind"`
	Ante            int64  `json:"ante"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
	IsBreak         bool   `json:"is_break"`
}

const (
	defaultLevelSeconds = 20 * 60
	defaultBreakSeconds = 5 * 60
)

// DurationSeconds falls back to 5 minutes for breaks and 20 minutes otherwise.
func (l *BlindLevel) DurationSeconds() int {
	if l.DurationMinutes != nil && *l.DurationMinutes > 0 {
		return *l.DurationMinutes * 60
	}
	if l.IsBreak {
		return defaultBreakSeconds
	}
	return defaultLevelSeconds
}

// DefaultLevelSeconds is used when a live state is created without a level row.
func DefaultLevelSeconds() int { return defaultLevelSeconds }
