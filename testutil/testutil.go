// Package testutil provides an in-memory database and fixtures shared by
// package tests.
package testutil

import (
	"fmt"
	"sync"
	"testing"

	"club-live-engine/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate schema: %v", err)
	}
	return db
}

// CreateStructure stores a blind structure with one level per duration (in
// minutes). A zero duration leaves DurationMinutes unset.
func CreateStructure(t *testing.T, db *gorm.DB, durations ...int) *models.BlindStructure {
	t.Helper()

	s := &models.BlindStructure{ID: uuid.NewString(), Name: "Deepstack"}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("Failed to create structure: %v", err)
	}
	for i, d := range durations {
		level := models.BlindLevel{
			ID:          uuid.NewString(),
			StructureID: s.ID,
			LevelNumber: i + 1,
			SmallBlind:  int64(100 * (i + 1)),
			BigBlind:    int64(200 * (i + 1)),
		}
		if d > 0 {
			minutes := d
			level.DurationMinutes = &minutes
		}
		if err := db.Create(&level).Error; err != nil {
			t.Fatalf("Failed to create level %d: %v", i+1, err)
		}
		s.Levels = append(s.Levels, level)
	}
	return s
}

// CreateTournament stores a RUNNING tournament; mutate adjusts it before insert.
func CreateTournament(t *testing.T, db *gorm.DB, mutate func(*models.Tournament)) *models.Tournament {
	t.Helper()

	tour := &models.Tournament{
		ID:            uuid.NewString(),
		Name:          "Friday Night Deepstack",
		Status:        models.TournamentStatusRunning,
		StartingStack: 10000,
		RebuyChips:    10000,
		RebuyCost:     50,
		AddonChips:    15000,
		AddonCost:     50,
	}
	if mutate != nil {
		mutate(tour)
	}
	if err := db.Create(tour).Error; err != nil {
		t.Fatalf("Failed to create tournament: %v", err)
	}
	return tour
}

// CreateClubTables stores n venue tables for clubID numbered from 1.
func CreateClubTables(t *testing.T, db *gorm.DB, clubID string, n, maxSeats int) []models.ClubTable {
	t.Helper()

	tables := make([]models.ClubTable, 0, n)
	for i := 1; i <= n; i++ {
		ct := models.ClubTable{ID: uuid.NewString(), ClubID: clubID, TableNumber: i, MaxSeats: maxSeats}
		if err := db.Create(&ct).Error; err != nil {
			t.Fatalf("Failed to create club table %d: %v", i, err)
		}
		tables = append(tables, ct)
	}
	return tables
}

// RegisterPlayer creates a player with an active registration and a deposit.
func RegisterPlayer(t *testing.T, db *gorm.DB, tournamentID, nickname string, arrived bool, deposit int64) *models.Registration {
	t.Helper()

	p := models.Player{ID: uuid.NewString(), Nickname: nickname}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("Failed to create player %s: %v", nickname, err)
	}
	if deposit > 0 {
		if err := db.Create(&models.DepositBalance{PlayerID: p.ID, Balance: deposit}).Error; err != nil {
			t.Fatalf("Failed to create balance for %s: %v", nickname, err)
		}
	}
	reg := &models.Registration{
		ID:            uuid.NewString(),
		TournamentID:  tournamentID,
		PlayerID:      p.ID,
		IsArrived:     arrived,
		IsActive:      true,
		PaymentMethod: "DEPOSIT",
		CurrentStack:  10000,
		Player:        p,
	}
	if err := db.Omit("Player").Create(reg).Error; err != nil {
		t.Fatalf("Failed to register %s: %v", nickname, err)
	}
	return reg
}

// RegisterPlayers registers n arrived players named p01..pNN.
func RegisterPlayers(t *testing.T, db *gorm.DB, tournamentID string, n int) []*models.Registration {
	t.Helper()

	regs := make([]*models.Registration, 0, n)
	for i := 1; i <= n; i++ {
		regs = append(regs, RegisterPlayer(t, db, tournamentID, fmt.Sprintf("p%02d", i), true, 0))
	}
	return regs
}

// CreateTable stores an inactive tournament table.
func CreateTable(t *testing.T, db *gorm.DB, tournamentID string, number, maxSeats int) *models.TournamentTable {
	t.Helper()

	tbl := &models.TournamentTable{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		TableNumber:  number,
		MaxSeats:     maxSeats,
		Status:       models.TableStatusInactive,
	}
	if err := db.Create(tbl).Error; err != nil {
		t.Fatalf("Failed to create table %d: %v", number, err)
	}
	return tbl
}

// SeatPlayer occupies seatNumber at tbl and bumps its counters.
func SeatPlayer(t *testing.T, db *gorm.DB, tbl *models.TournamentTable, seatNumber int, reg *models.Registration) *models.Seat {
	t.Helper()

	seat := &models.Seat{ID: uuid.NewString(), TableID: tbl.ID, SeatNumber: seatNumber}
	seat.Occupy(reg.PlayerID, reg.Player.Nickname)
	if err := db.Create(seat).Error; err != nil {
		t.Fatalf("Failed to seat %s: %v", reg.Player.Nickname, err)
	}
	tbl.OccupiedSeats++
	tbl.SyncStatus()
	if err := db.Model(&models.TournamentTable{}).Where("id = ?", tbl.ID).
		Updates(map[string]any{"occupied_seats": tbl.OccupiedSeats, "status": tbl.Status}).Error; err != nil {
		t.Fatalf("Failed to update table %d: %v", tbl.TableNumber, err)
	}
	return seat
}

// Published is one recorded broadcast.
type Published struct {
	Room    string
	Event   string
	Payload any
}

// Recorder is a publisher that keeps everything it is given.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

func (r *Recorder) Publish(room, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Room: room, Event: event, Payload: payload})
}

// Count returns how many events with the given name were published.
func (r *Recorder) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}
