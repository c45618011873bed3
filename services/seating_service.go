package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"

	"club-live-engine/broadcast"
	"club-live-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeatingService owns table and seat assignment for tournaments.
type SeatingService struct {
	DB        *gorm.DB
	Publisher broadcast.Publisher

	// shuffle is a uniform Fisher-Yates shuffle; tests may pin it.
	shuffle func(n int, swap func(i, j int))
}

func NewSeatingService(db *gorm.DB, pub broadcast.Publisher) *SeatingService {
	return &SeatingService{DB: db, Publisher: pub, shuffle: rand.Shuffle}
}

// TableMoveInput resolves who leaves one over-target table: either explicit
// player ids or the UTG seat from which consecutive seats are taken.
type TableMoveInput struct {
	TableID   string   `json:"table_id"`
	PlayerIDs []string `json:"player_ids,omitempty"`
	UTGSeat   *int     `json:"utg_seat,omitempty"`
}

func (in TableMoveInput) empty() bool { return len(in.PlayerIDs) == 0 && in.UTGSeat == nil }

// BalanceOutcome is either BalanceCompleted or BalanceNeedsInput.
type BalanceOutcome interface {
	balanceOutcome()
}

type BalanceCompleted struct {
	TablesCreated int `json:"tablesCreated"`
	SeatsAssigned int `json:"seatsAssigned"`
}

// BalanceNeedsInput lists every over-target table whose movers must be chosen
// by the floor. Nothing was written when this is returned.
type BalanceNeedsInput struct {
	Moves []TableMoveRequest `json:"moves"`
}

func (BalanceCompleted) balanceOutcome()  {}
func (BalanceNeedsInput) balanceOutcome() {}

type TableMoveRequest struct {
	TableID     string         `json:"tableId"`
	TableNumber int            `json:"tableNumber"`
	CountToMove int            `json:"countToMove"`
	Players     []SeatedPlayer `json:"players"`
}

type SeatedPlayer struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	SeatNumber int    `json:"seatNumber"`
}

type pendingPlayer struct {
	id   string
	name string
}

// InitializeTables creates one inactive tournament table per club table. It is
// a no-op when the tournament already has tables.
func (s *SeatingService) InitializeTables(ctx context.Context, tournamentID string) (int, error) {
	var created []models.TournamentTable
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.First(&t, "id = ?", tournamentID).Error; err != nil {
			return notFound(err, "tournament", tournamentID)
		}

		var existing int64
		if err := tx.Model(&models.TournamentTable{}).Where("tournament_id = ?", tournamentID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		if t.ClubID == nil {
			return fmt.Errorf("%w: tournament %s is not bound to a club", ErrInvalidState, tournamentID)
		}

		var clubTables []models.ClubTable
		if err := tx.Where("club_id = ?", *t.ClubID).Order("table_number ASC").Find(&clubTables).Error; err != nil {
			return err
		}
		for _, ct := range clubTables {
			ctID := ct.ID
			tbl := models.TournamentTable{
				ID:           uuid.NewString(),
				TournamentID: tournamentID,
				ClubTableID:  &ctID,
				TableNumber:  ct.TableNumber,
				MaxSeats:     ct.MaxSeats,
				Status:       models.TableStatusInactive,
			}
			if err := tx.Create(&tbl).Error; err != nil {
				return fmt.Errorf("create table %d: %w", ct.TableNumber, err)
			}
			created = append(created, tbl)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(created) > 0 {
		log.Printf("[Seating] Initialized %d table(s) for tournament %s", len(created), tournamentID)
		s.Publisher.Publish(broadcast.TournamentRoom(tournamentID), broadcast.EventTableUpdate, created)
	}
	return len(created), nil
}

// ListTables returns the tournament's tables with seats, ordered by number.
func (s *SeatingService) ListTables(ctx context.Context, tournamentID string) ([]models.TournamentTable, error) {
	var tables []models.TournamentTable
	err := s.DB.WithContext(ctx).
		Preload("Seats", func(db *gorm.DB) *gorm.DB { return db.Order("seat_number ASC") }).
		Where("tournament_id = ?", tournamentID).
		Order("table_number ASC").
		Find(&tables).Error
	return tables, err
}

// AutoBalance seats arrived players and evens out table counts so no two
// tables differ by more than one player.
func (s *SeatingService) AutoBalance(ctx context.Context, tournamentID string, moves []TableMoveInput) (BalanceOutcome, error) {
	var (
		outcome BalanceOutcome
		changed []*models.TournamentTable
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.First(&t, "id = ?", tournamentID).Error; err != nil {
			return notFound(err, "tournament", tournamentID)
		}

		tables, err := s.loadTables(tx, tournamentID)
		if err != nil {
			return err
		}

		seated := make(map[string][]*models.Seat, len(tables))
		seatedPlayers := make(map[string]bool)
		for _, tbl := range tables {
			for i := range tbl.Seats {
				seat := &tbl.Seats[i]
				if seat.IsOccupied && seat.Status != models.SeatStatusEliminated && seat.PlayerID != nil {
					seated[tbl.ID] = append(seated[tbl.ID], seat)
					seatedPlayers[*seat.PlayerID] = true
				}
			}
			tbl.OccupiedSeats = len(seated[tbl.ID])
		}

		var regs []models.Registration
		if err := tx.Preload("Player").
			Where("tournament_id = ? AND is_arrived = ? AND is_active = ?", tournamentID, true, true).
			Order("created_at ASC").
			Find(&regs).Error; err != nil {
			return err
		}
		var pool []pendingPlayer
		for _, r := range regs {
			if !seatedPlayers[r.PlayerID] {
				pool = append(pool, pendingPlayer{id: r.PlayerID, name: r.Player.Nickname})
			}
		}

		total := len(seatedPlayers) + len(pool)
		if total == 0 {
			outcome = BalanceCompleted{}
			return nil
		}

		perTable := t.SeatsPerTable()
		for _, tbl := range tables {
			if tbl.MaxSeats > 0 && tbl.MaxSeats < perTable {
				perTable = tbl.MaxSeats
			}
		}
		needed := (total + perTable - 1) / perTable

		targets, newTables := planTargets(tables, seated, total, needed)

		inputs := make(map[string]TableMoveInput, len(moves))
		for _, m := range moves {
			inputs[m.TableID] = m
		}

		var (
			movers     []*models.Seat
			unresolved []TableMoveRequest
		)
		for _, tbl := range tables {
			current := seated[tbl.ID]
			excess := len(current) - targets[tbl.ID]
			if excess <= 0 {
				continue
			}
			if excess == len(current) {
				// Table is breaking; everyone moves, nothing to decide.
				movers = append(movers, current...)
				continue
			}
			in, ok := inputs[tbl.ID]
			if !ok || in.empty() {
				unresolved = append(unresolved, moveRequest(tbl, current, excess))
				continue
			}
			picked, err := selectMovers(tbl, current, in, excess)
			if err != nil {
				return err
			}
			movers = append(movers, picked...)
		}
		if len(unresolved) > 0 {
			outcome = BalanceNeedsInput{Moves: unresolved}
			return nil
		}

		nextNumber := 1
		for _, tbl := range tables {
			if tbl.TableNumber >= nextNumber {
				nextNumber = tbl.TableNumber + 1
			}
		}
		for i := 0; i < len(newTables); i++ {
			tbl := &models.TournamentTable{
				ID:           uuid.NewString(),
				TournamentID: tournamentID,
				TableNumber:  nextNumber + i,
				MaxSeats:     perTable,
				Status:       models.TableStatusInactive,
			}
			if err := tx.Omit("Seats").Create(tbl).Error; err != nil {
				return fmt.Errorf("create table %d: %w", tbl.TableNumber, err)
			}
			targets[tbl.ID] = newTables[i]
			tables = append(tables, tbl)
		}

		byID := make(map[string]*models.TournamentTable, len(tables))
		for _, tbl := range tables {
			byID[tbl.ID] = tbl
		}
		touched := make(map[string]bool)

		for _, seat := range movers {
			pool = append(pool, pendingPlayer{id: *seat.PlayerID, name: derefName(seat.PlayerName)})
			seat.Vacate(models.SeatStatusWaiting)
			if err := tx.Save(seat).Error; err != nil {
				return fmt.Errorf("vacate seat %s: %w", seat.ID, err)
			}
			tbl := byID[seat.TableID]
			tbl.OccupiedSeats--
			touched[tbl.ID] = true
		}

		s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

		order := make([]*models.TournamentTable, len(tables))
		copy(order, tables)
		sort.SliceStable(order, func(i, j int) bool {
			ti, tj := targets[order[i].ID], targets[order[j].ID]
			if ti != tj {
				return ti > tj
			}
			return order[i].TableNumber < order[j].TableNumber
		})

		assigned := 0
		for _, tbl := range order {
			for tbl.OccupiedSeats < targets[tbl.ID] && assigned < len(pool) {
				seat, err := s.freeSeat(tx, tbl)
				if err != nil {
					return err
				}
				p := pool[assigned]
				seat.Occupy(p.id, p.name)
				if err := tx.Save(seat).Error; err != nil {
					return fmt.Errorf("seat player %s: %w", p.id, err)
				}
				tbl.OccupiedSeats++
				touched[tbl.ID] = true
				assigned++
			}
		}
		if assigned < len(pool) {
			return fmt.Errorf("%w: %d player(s) could not be seated", ErrInvalidState, len(pool)-assigned)
		}

		for _, tbl := range tables {
			if !touched[tbl.ID] {
				continue
			}
			tbl.SyncStatus()
			if err := saveTableCounters(tx, tbl); err != nil {
				return err
			}
			changed = append(changed, tbl)
		}

		outcome = BalanceCompleted{TablesCreated: len(newTables), SeatsAssigned: assigned}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch o := outcome.(type) {
	case BalanceNeedsInput:
		log.Printf("[Seating] ⏸️ Auto-balance for tournament %s needs input on %d table(s)", tournamentID, len(o.Moves))
	case BalanceCompleted:
		log.Printf("[Seating] ✅ Auto-balance for tournament %s: %d table(s) created, %d seat(s) assigned",
			tournamentID, o.TablesCreated, o.SeatsAssigned)
		s.publishTables(tournamentID, changed)
		if o.SeatsAssigned > 0 || o.TablesCreated > 0 {
			s.Publisher.Publish(broadcast.TournamentRoom(tournamentID), broadcast.EventSeatingChange, o)
		}
	}
	return outcome, nil
}

// planTargets keeps the `needed` tables with the most seated players (ties to
// the lower number) and splits total evenly across them, giving the remainder
// to the lowest-numbered tables. Tables not kept get a target of zero. The
// returned slice holds targets for tables that must be created, in order.
func planTargets(tables []*models.TournamentTable, seated map[string][]*models.Seat, total, needed int) (map[string]int, []int) {
	ranked := make([]*models.TournamentTable, len(tables))
	copy(ranked, tables)
	sort.SliceStable(ranked, func(i, j int) bool {
		ci, cj := len(seated[ranked[i].ID]), len(seated[ranked[j].ID])
		if ci != cj {
			return ci > cj
		}
		return ranked[i].TableNumber < ranked[j].TableNumber
	})

	keep := ranked
	if len(keep) > needed {
		keep = keep[:needed]
	}
	sort.SliceStable(keep, func(i, j int) bool { return keep[i].TableNumber < keep[j].TableNumber })

	base, rem := total/needed, total%needed
	share := func(idx int) int {
		if idx < rem {
			return base + 1
		}
		return base
	}

	targets := make(map[string]int, len(tables))
	for _, tbl := range tables {
		targets[tbl.ID] = 0
	}
	for i, tbl := range keep {
		targets[tbl.ID] = share(i)
	}
	var extra []int
	for i := len(keep); i < needed; i++ {
		extra = append(extra, share(i))
	}
	return targets, extra
}

func moveRequest(tbl *models.TournamentTable, seats []*models.Seat, count int) TableMoveRequest {
	req := TableMoveRequest{TableID: tbl.ID, TableNumber: tbl.TableNumber, CountToMove: count}
	for _, seat := range seats {
		req.Players = append(req.Players, SeatedPlayer{
			PlayerID:   *seat.PlayerID,
			PlayerName: derefName(seat.PlayerName),
			SeatNumber: seat.SeatNumber,
		})
	}
	return req
}

// selectMovers resolves exactly count movers from seats (sorted by seat
// number) using the caller's explicit ids or the UTG anchor.
func selectMovers(tbl *models.TournamentTable, seats []*models.Seat, in TableMoveInput, count int) ([]*models.Seat, error) {
	if len(in.PlayerIDs) > 0 {
		byPlayer := make(map[string]*models.Seat, len(seats))
		for _, seat := range seats {
			byPlayer[*seat.PlayerID] = seat
		}
		var picked []*models.Seat
		seen := make(map[string]bool)
		for _, id := range in.PlayerIDs {
			seat, ok := byPlayer[id]
			if !ok {
				return nil, fmt.Errorf("%w: player %s is not seated at table %d", ErrInvalidInput, id, tbl.TableNumber)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			picked = append(picked, seat)
			if len(picked) == count {
				break
			}
		}
		if len(picked) < count {
			return nil, fmt.Errorf("%w: table %d needs %d mover(s), got %d", ErrInvalidInput, tbl.TableNumber, count, len(picked))
		}
		return picked, nil
	}

	utg := *in.UTGSeat
	if utg < 1 || (tbl.MaxSeats > 0 && utg > tbl.MaxSeats) {
		return nil, fmt.Errorf("%w: utg seat %d outside table %d", ErrInvalidInput, utg, tbl.TableNumber)
	}
	start := 0
	for i, seat := range seats {
		if seat.SeatNumber >= utg {
			start = i
			break
		}
		if i == len(seats)-1 {
			start = 0 // anchor past the last occupied seat wraps to the first
		}
	}
	picked := make([]*models.Seat, 0, count)
	for k := 0; k < count; k++ {
		picked = append(picked, seats[(start+k)%len(seats)])
	}
	return picked, nil
}

// freeSeat returns the lowest-numbered unoccupied seat row of tbl, creating a
// new row only when no vacated row exists.
func (s *SeatingService) freeSeat(tx *gorm.DB, tbl *models.TournamentTable) (*models.Seat, error) {
	used := make(map[int]bool, len(tbl.Seats))
	var reuse *models.Seat
	for i := range tbl.Seats {
		seat := &tbl.Seats[i]
		used[seat.SeatNumber] = true
		if !seat.IsOccupied && seat.SeatNumber <= tbl.MaxSeats && (reuse == nil || seat.SeatNumber < reuse.SeatNumber) {
			reuse = seat
		}
	}
	if reuse != nil {
		return reuse, nil
	}
	for n := 1; n <= tbl.MaxSeats; n++ {
		if used[n] {
			continue
		}
		seat := models.Seat{
			ID:         uuid.NewString(),
			TableID:    tbl.ID,
			SeatNumber: n,
			Status:     models.SeatStatusWaiting,
		}
		if err := tx.Create(&seat).Error; err != nil {
			return nil, fmt.Errorf("create seat %d at table %d: %w", n, tbl.TableNumber, err)
		}
		tbl.Seats = append(tbl.Seats, seat)
		return &tbl.Seats[len(tbl.Seats)-1], nil
	}
	return nil, fmt.Errorf("%w: table %d is full", ErrInvalidState, tbl.TableNumber)
}

// ManualReseat moves one player to a specific seat, creating the seat row if
// needed.
func (s *SeatingService) ManualReseat(ctx context.Context, tournamentID, playerID, newTableID string, newSeatNumber int) (*models.Seat, error) {
	var (
		result  *models.Seat
		changed []*models.TournamentTable
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg models.Registration
		if err := tx.Preload("Player").
			First(&reg, "tournament_id = ? AND player_id = ?", tournamentID, playerID).Error; err != nil {
			return notFound(err, "registration for player", playerID)
		}
		if !reg.IsArrived || !reg.IsActive {
			return fmt.Errorf("%w (player %s)", ErrPlayerNotSeatable, playerID)
		}

		source, err := findOccupiedSeat(tx, playerID, &tournamentID)
		if err != nil {
			return err
		}
		ids := []string{newTableID}
		if source != nil && source.TableID != newTableID {
			ids = append(ids, source.TableID)
		}
		locked, err := lockTables(tx, ids...)
		if err != nil {
			return err
		}
		dest, ok := locked[newTableID]
		if !ok || dest.TournamentID != tournamentID {
			return notFound(gorm.ErrRecordNotFound, "table", newTableID)
		}
		if newSeatNumber < 1 || newSeatNumber > dest.MaxSeats {
			return fmt.Errorf("%w: seat %d outside 1..%d", ErrInvalidInput, newSeatNumber, dest.MaxSeats)
		}

		// Re-read under the table locks; the player may have moved meanwhile.
		if source, err = findOccupiedSeat(tx, playerID, &tournamentID); err != nil {
			return err
		}
		if source != nil && locked[source.TableID] == nil {
			return fmt.Errorf("%w: player %s was moved concurrently, retry", ErrInvalidState, playerID)
		}
		if source != nil && source.TableID == dest.ID && source.SeatNumber == newSeatNumber {
			result = source
			return nil
		}

		var target models.Seat
		err = tx.First(&target, "table_id = ? AND seat_number = ?", dest.ID, newSeatNumber).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			target = models.Seat{
				ID:         uuid.NewString(),
				TableID:    dest.ID,
				SeatNumber: newSeatNumber,
				Status:     models.SeatStatusWaiting,
			}
			if err := tx.Create(&target).Error; err != nil {
				return fmt.Errorf("create seat %d: %w", newSeatNumber, err)
			}
		case err != nil:
			return err
		case target.IsOccupied:
			return fmt.Errorf("%w: table %d seat %d", ErrSeatOccupied, dest.TableNumber, newSeatNumber)
		}

		if source != nil {
			source.Vacate(models.SeatStatusWaiting)
			if err := tx.Save(source).Error; err != nil {
				return fmt.Errorf("vacate seat %s: %w", source.ID, err)
			}
			if source.TableID == dest.ID {
				dest.OccupiedSeats--
			} else {
				from := locked[source.TableID]
				from.OccupiedSeats--
				from.SyncStatus()
				if err := saveTableCounters(tx, from); err != nil {
					return err
				}
				changed = append(changed, from)
			}
		}

		target.Occupy(playerID, reg.Player.Nickname)
		if err := tx.Save(&target).Error; err != nil {
			return fmt.Errorf("seat player %s: %w", playerID, err)
		}
		dest.OccupiedSeats++
		dest.SyncStatus()
		if err := saveTableCounters(tx, dest); err != nil {
			return err
		}
		changed = append(changed, dest)
		result = &target
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(changed) > 0 {
		log.Printf("[Seating] Player %s reseated to table %s seat %d", playerID, newTableID, newSeatNumber)
		s.publishTables(tournamentID, changed)
		s.Publisher.Publish(broadcast.TournamentRoom(tournamentID), broadcast.EventSeatingChange, result)
	}
	return result, nil
}

// EliminateSeat vacates the player's seat and marks it ELIMINATED. It returns
// nil without error when the player has no seat.
func (s *SeatingService) EliminateSeat(ctx context.Context, playerID string, tournamentID *string) (*models.Seat, error) {
	var (
		seat *models.Seat
		tbl  *models.TournamentTable
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		seat, tbl, err = eliminateSeatTx(tx, playerID, tournamentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if seat != nil {
		s.publishTables(tbl.TournamentID, []*models.TournamentTable{tbl})
	}
	return seat, nil
}

func eliminateSeatTx(tx *gorm.DB, playerID string, tournamentID *string) (*models.Seat, *models.TournamentTable, error) {
	found, err := findOccupiedSeat(tx, playerID, tournamentID)
	if err != nil || found == nil {
		return nil, nil, err
	}

	locked, err := lockTables(tx, found.TableID)
	if err != nil {
		return nil, nil, err
	}
	tbl, ok := locked[found.TableID]
	if !ok {
		return nil, nil, notFound(gorm.ErrRecordNotFound, "table", found.TableID)
	}

	// Re-read under the table lock; a concurrent elimination may have won.
	var seat models.Seat
	if err := tx.First(&seat, "id = ?", found.ID).Error; err != nil {
		return nil, nil, notFound(err, "seat", found.ID)
	}
	if !seat.IsOccupied || seat.Status == models.SeatStatusEliminated ||
		seat.PlayerID == nil || *seat.PlayerID != playerID {
		return nil, nil, nil
	}

	seat.Vacate(models.SeatStatusEliminated)
	if err := tx.Save(&seat).Error; err != nil {
		return nil, nil, fmt.Errorf("eliminate seat %s: %w", seat.ID, err)
	}
	if tbl.OccupiedSeats > 0 {
		tbl.OccupiedSeats--
	}
	tbl.SyncStatus()
	if err := saveTableCounters(tx, tbl); err != nil {
		return nil, nil, err
	}
	return &seat, tbl, nil
}

// lockTables loads the given tables FOR UPDATE in id order, so seat writers
// touching the same tables queue behind each other and never deadlock.
func lockTables(tx *gorm.DB, ids ...string) (map[string]*models.TournamentTable, error) {
	var rows []models.TournamentTable
	if err := lockedTablesQuery(tx, ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("lock tables: %w", err)
	}
	out := make(map[string]*models.TournamentTable, len(rows))
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func lockedTablesQuery(tx *gorm.DB, ids []string) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC")
}

// findOccupiedSeat returns the player's live seat, optionally scoped to one
// tournament, or nil when the player is not seated.
func findOccupiedSeat(tx *gorm.DB, playerID string, tournamentID *string) (*models.Seat, error) {
	q := tx.Model(&models.Seat{}).
		Where("seats.player_id = ? AND seats.is_occupied = ? AND seats.status <> ?", playerID, true, models.SeatStatusEliminated)
	if tournamentID != nil {
		q = q.Joins("JOIN tournament_tables ON tournament_tables.id = seats.table_id").
			Where("tournament_tables.tournament_id = ?", *tournamentID)
	}
	var seat models.Seat
	err := q.First(&seat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find seat for player %s: %w", playerID, err)
	}
	return &seat, nil
}

// loadTables locks the tournament's tables and returns them with their seats,
// ordered by table number.
func (s *SeatingService) loadTables(tx *gorm.DB, tournamentID string) ([]*models.TournamentTable, error) {
	var rows []models.TournamentTable
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Seats", func(db *gorm.DB) *gorm.DB { return db.Order("seat_number ASC") }).
		Where("tournament_id = ?", tournamentID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TableNumber < rows[j].TableNumber })
	tables := make([]*models.TournamentTable, len(rows))
	for i := range rows {
		tables[i] = &rows[i]
	}
	return tables, nil
}

func saveTableCounters(tx *gorm.DB, tbl *models.TournamentTable) error {
	err := tx.Model(&models.TournamentTable{}).Where("id = ?", tbl.ID).
		Updates(map[string]any{"occupied_seats": tbl.OccupiedSeats, "status": tbl.Status}).Error
	if err != nil {
		return fmt.Errorf("update table %d: %w", tbl.TableNumber, err)
	}
	return nil
}

func (s *SeatingService) publishTables(tournamentID string, tables []*models.TournamentTable) {
	for _, tbl := range tables {
		s.Publisher.Publish(broadcast.TournamentRoom(tournamentID), broadcast.EventTableUpdate, tbl)
		s.Publisher.Publish(broadcast.TableRoom(tbl.ID), broadcast.EventTableUpdate, tbl)
	}
}

func derefName(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
