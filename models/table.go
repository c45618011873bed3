package models

import "time"

const (
	TableStatusInactive = "INACTIVE"
	TableStatusActive   = "ACTIVE"

	SeatStatusWaiting    = "WAITING"
	SeatStatusActive     = "ACTIVE"
	SeatStatusEliminated = "ELIMINATED"
)

// ClubTable is a physical table at a venue.
type ClubTable struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	ClubID      string    `json:"club_id" gorm:"not null;index"`
	TableNumber int       `json:"table_number"`
	MaxSeats    int       `json:"max_seats"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TournamentTable is a table in play for one tournament. OccupiedSeats always
// equals the number of its seats with IsOccupied set.
type TournamentTable struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	TournamentID  string    `json:"tournament_id" gorm:"not null;index"`
	ClubTableID   *string   `json:"club_table_id,omitempty"`
	TableNumber   int       `json:"table_number"`
	MaxSeats      int       `json:"max_seats"`
	OccupiedSeats int       `json:"occupied_seats"`
	Status        string    `json:"status" gorm:"type:varchar(16)"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Seats []Seat `json:"seats,omitempty" gorm:"foreignKey:TableID"`
}

// SyncStatus flips the table to ACTIVE while it has occupants.
func (t *TournamentTable) SyncStatus() {
	if t.OccupiedSeats > 0 {
		t.Status = TableStatusActive
	} else {
		t.Status = TableStatusInactive
	}
}

// Seat numbers are unique within a table and run 1..MaxSeats.
type Seat struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	TableID    string    `json:"table_id" gorm:"not null;uniqueIndex:idx_table_seat"`
	SeatNumber int       `json:"seat_number" gorm:"not null;uniqueIndex:idx_table_seat"`
	IsOccupied bool      `json:"is_occupied"`
	Status     string    `json:"status" gorm:"type:varchar(16)"`
	PlayerID   *string   `json:"player_id,omitempty" gorm:"index"`
	PlayerName *string   `json:"player_name,omitempty"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Vacate clears the occupant and leaves the row for reuse.
func (s *Seat) Vacate(status string) {
	s.IsOccupied = false
	s.Status = status
	s.PlayerID = nil
	s.PlayerName = nil
}

// Occupy seats a player.
func (s *Seat) Occupy(playerID, playerName string) {
	s.IsOccupied = true
	s.Status = SeatStatusActive
	s.PlayerID = &playerID
	s.PlayerName = &playerName
}
