package services

import (
	"context"
	"errors"
	"testing"

	"club-live-engine/broadcast"
	"club-live-engine/models"
	"club-live-engine/testutil"

	"gorm.io/gorm"
)

func newSeating(db *gorm.DB) (*SeatingService, *testutil.Recorder) {
	rec := &testutil.Recorder{}
	svc := NewSeatingService(db, rec)
	svc.shuffle = func(int, func(i, j int)) {}
	return svc, rec
}

func tableCounts(t *testing.T, db *gorm.DB, tournamentID string) []int {
	t.Helper()
	var tables []models.TournamentTable
	if err := db.Where("tournament_id = ?", tournamentID).Order("table_number ASC").Find(&tables).Error; err != nil {
		t.Fatalf("load tables: %v", err)
	}
	counts := make([]int, len(tables))
	for i, tbl := range tables {
		counts[i] = tbl.OccupiedSeats
	}
	return counts
}

// assertSeatingInvariants checks capacity, counter accuracy and that no
// player holds two live seats.
func assertSeatingInvariants(t *testing.T, db *gorm.DB, tournamentID string) {
	t.Helper()
	var tables []models.TournamentTable
	if err := db.Preload("Seats").Where("tournament_id = ?", tournamentID).Find(&tables).Error; err != nil {
		t.Fatalf("load tables: %v", err)
	}
	players := make(map[string]bool)
	for _, tbl := range tables {
		occupied := 0
		for _, seat := range tbl.Seats {
			if seat.SeatNumber < 1 || seat.SeatNumber > tbl.MaxSeats {
				t.Errorf("table %d has seat %d outside 1..%d", tbl.TableNumber, seat.SeatNumber, tbl.MaxSeats)
			}
			if !seat.IsOccupied {
				continue
			}
			occupied++
			if seat.PlayerID == nil {
				t.Errorf("table %d seat %d occupied without player", tbl.TableNumber, seat.SeatNumber)
				continue
			}
			if players[*seat.PlayerID] {
				t.Errorf("player %s holds more than one seat", *seat.PlayerID)
			}
			players[*seat.PlayerID] = true
		}
		if occupied != tbl.OccupiedSeats {
			t.Errorf("table %d counter %d, occupied rows %d", tbl.TableNumber, tbl.OccupiedSeats, occupied)
		}
		if tbl.OccupiedSeats > tbl.MaxSeats {
			t.Errorf("table %d over capacity: %d/%d", tbl.TableNumber, tbl.OccupiedSeats, tbl.MaxSeats)
		}
		wantStatus := models.TableStatusInactive
		if tbl.OccupiedSeats > 0 {
			wantStatus = models.TableStatusActive
		}
		if tbl.Status != wantStatus {
			t.Errorf("table %d status %s with %d players", tbl.TableNumber, tbl.Status, tbl.OccupiedSeats)
		}
	}
}

func clubTournament(t *testing.T, db *gorm.DB, tables, seats int) *models.Tournament {
	t.Helper()
	clubID := "club-1"
	testutil.CreateClubTables(t, db, clubID, tables, seats)
	return testutil.CreateTournament(t, db, func(tour *models.Tournament) {
		tour.ClubID = &clubID
		tour.MaxSeatsPerTable = seats
	})
}

func TestInitializeTables_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, rec := newSeating(db)
	tour := clubTournament(t, db, 2, 9)
	ctx := context.Background()

	n, err := svc.InitializeTables(ctx, tour.ID)
	if err != nil {
		t.Fatalf("InitializeTables failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 tables created, got %d", n)
	}

	n, err = svc.InitializeTables(ctx, tour.ID)
	if err != nil {
		t.Fatalf("second InitializeTables failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no tables on second call, got %d", n)
	}

	tables, err := svc.ListTables(ctx, tour.ID)
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
	for i, tbl := range tables {
		if tbl.TableNumber != i+1 || tbl.MaxSeats != 9 || tbl.Status != models.TableStatusInactive || tbl.ClubTableID == nil {
			t.Errorf("unexpected table %+v", tbl)
		}
	}
	if rec.Count(broadcast.EventTableUpdate) != 1 {
		t.Errorf("expected one table_update, got %d", rec.Count(broadcast.EventTableUpdate))
	}
}

func TestInitializeTables_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newSeating(db)
	ctx := context.Background()

	if _, err := svc.InitializeTables(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	tour := testutil.CreateTournament(t, db, nil)
	if _, err := svc.InitializeTables(ctx, tour.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState without a club, got %v", err)
	}
}

func TestAutoBalance_NineteenPlayersNeedInputThenSplit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, rec := newSeating(db)
	tour := clubTournament(t, db, 2, 9)
	ctx := context.Background()

	if _, err := svc.InitializeTables(ctx, tour.ID); err != nil {
		t.Fatalf("InitializeTables failed: %v", err)
	}
	tables, _ := svc.ListTables(ctx, tour.ID)
	t1, t2 := &tables[0], &tables[1]

	regs := testutil.RegisterPlayers(t, db, tour.ID, 19)
	for i := 0; i < 9; i++ {
		testutil.SeatPlayer(t, db, t1, i+1, regs[i])
		testutil.SeatPlayer(t, db, t2, i+1, regs[9+i])
	}

	outcome, err := svc.AutoBalance(ctx, tour.ID, nil)
	if err != nil {
		t.Fatalf("AutoBalance failed: %v", err)
	}
	needs, ok := outcome.(BalanceNeedsInput)
	if !ok {
		t.Fatalf("expected BalanceNeedsInput, got %#v", outcome)
	}
	if len(needs.Moves) != 2 {
		t.Fatalf("expected 2 tables needing input, got %d", len(needs.Moves))
	}
	want := map[int]int{1: 2, 2: 3}
	for _, m := range needs.Moves {
		if m.CountToMove != want[m.TableNumber] {
			t.Errorf("table %d: expected %d to move, got %d", m.TableNumber, want[m.TableNumber], m.CountToMove)
		}
		if len(m.Players) != 9 {
			t.Errorf("table %d: expected 9 listed players, got %d", m.TableNumber, len(m.Players))
		}
		for i, p := range m.Players {
			if p.SeatNumber != i+1 {
				t.Errorf("table %d: players not sorted by seat: %+v", m.TableNumber, m.Players)
				break
			}
		}
	}
	if got := tableCounts(t, db, tour.ID); len(got) != 2 || got[0] != 9 || got[1] != 9 {
		t.Fatalf("needs-input must not mutate seating, got %v", got)
	}
	if rec.Count(broadcast.EventSeatingChange) != 0 {
		t.Fatal("needs-input must not broadcast a seating change")
	}

	utg := 8
	outcome, err = svc.AutoBalance(ctx, tour.ID, []TableMoveInput{
		{TableID: t1.ID, UTGSeat: &utg},
		{TableID: t2.ID, PlayerIDs: []string{regs[9].PlayerID, regs[10].PlayerID, regs[11].PlayerID}},
	})
	if err != nil {
		t.Fatalf("resolved AutoBalance failed: %v", err)
	}
	done, ok := outcome.(BalanceCompleted)
	if !ok {
		t.Fatalf("expected BalanceCompleted, got %#v", outcome)
	}
	if done.TablesCreated != 1 || done.SeatsAssigned != 6 {
		t.Fatalf("unexpected outcome %+v", done)
	}

	got := tableCounts(t, db, tour.ID)
	if len(got) != 3 || got[0] != 7 || got[1] != 6 || got[2] != 6 {
		t.Fatalf("expected 7/6/6, got %v", got)
	}
	assertSeatingInvariants(t, db, tour.ID)

	var moved []models.Seat
	db.Where("table_id = ? AND seat_number IN ?", t1.ID, []int{8, 9}).Find(&moved)
	for _, s := range moved {
		if s.IsOccupied {
			t.Errorf("UTG movers from seat %d should have left table 1", s.SeatNumber)
		}
	}
	if rec.Count(broadcast.EventSeatingChange) != 1 {
		t.Errorf("expected one seating_change, got %d", rec.Count(broadcast.EventSeatingChange))
	}
}

func TestAutoBalance_SeatsFreshFieldEvenly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newSeating(db)
	tour := clubTournament(t, db, 2, 9)
	ctx := context.Background()

	svc.InitializeTables(ctx, tour.ID)
	testutil.RegisterPlayers(t, db, tour.ID, 19)
	testutil.RegisterPlayer(t, db, tour.ID, "no-show", false, 0)

	outcome, err := svc.AutoBalance(ctx, tour.ID, nil)
	if err != nil {
		t.Fatalf("AutoBalance failed: %v", err)
	}
	done, ok := outcome.(BalanceCompleted)
	if !ok {
		t.Fatalf("expected BalanceCompleted, got %#v", outcome)
	}
	if done.TablesCreated != 1 || done.SeatsAssigned != 19 {
		t.Fatalf("unexpected outcome %+v", done)
	}
	if got := tableCounts(t, db, tour.ID); len(got) != 3 || got[0] != 7 || got[1] != 6 || got[2] != 6 {
		t.Fatalf("expected 7/6/6, got %v", got)
	}
	assertSeatingInvariants(t, db, tour.ID)
}

func TestAutoBalance_BreakingTableNeedsNoInput(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newSeating(db)
	tour := testutil.CreateTournament(t, db, func(tour *models.Tournament) { tour.MaxSeatsPerTable = 9 })
	ctx := context.Background()

	t1 := testutil.CreateTable(t, db, tour.ID, 1, 9)
	t2 := testutil.CreateTable(t, db, tour.ID, 2, 9)
	t3 := testutil.CreateTable(t, db, tour.ID, 3, 9)
	regs := testutil.RegisterPlayers(t, db, tour.ID, 12)
	for i := 0; i < 5; i++ {
		testutil.SeatPlayer(t, db, t1, i+1, regs[i])
		testutil.SeatPlayer(t, db, t2, i+1, regs[5+i])
	}
	testutil.SeatPlayer(t, db, t3, 1, regs[10])
	testutil.SeatPlayer(t, db, t3, 2, regs[11])

	outcome, err := svc.AutoBalance(ctx, tour.ID, nil)
	if err != nil {
		t.Fatalf("AutoBalance failed: %v", err)
	}
	done, ok := outcome.(BalanceCompleted)
	if !ok {
		t.Fatalf("expected BalanceCompleted, got %#v", outcome)
	}
	if done.TablesCreated != 0 || done.SeatsAssigned != 2 {
		t.Fatalf("unexpected outcome %+v", done)
	}
	if got := tableCounts(t, db, tour.ID); got[0] != 6 || got[1] != 6 || got[2] != 0 {
		t.Fatalf("expected 6/6/0, got %v", got)
	}
	assertSeatingInvariants(t, db, tour.ID)
}

func TestAutoBalance_RejectsBadSelection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newSeating(db)
	tour := testutil.CreateTournament(t, db, func(tour *models.Tournament) { tour.MaxSeatsPerTable = 6 })
	ctx := context.Background()

	t1 := testutil.CreateTable(t, db, tour.ID, 1, 6)
	testutil.CreateTable(t, db, tour.ID, 2, 6)
	regs := testutil.RegisterPlayers(t, db, tour.ID, 6)
	for i, r := range regs {
		testutil.SeatPlayer(t, db, t1, i+1, r)
	}
	// One late arrival makes the split 4/3, so two players must leave table 1.
	testutil.RegisterPlayer(t, db, tour.ID, "late", true, 0)

	cases := []struct {
		name  string
		input TableMoveInput
	}{
		{"stranger", TableMoveInput{TableID: t1.ID, PlayerIDs: []string{"nobody", regs[0].PlayerID}}},
		{"too few", TableMoveInput{TableID: t1.ID, PlayerIDs: []string{regs[0].PlayerID, regs[0].PlayerID}}},
		{"utg out of range", TableMoveInput{TableID: t1.ID, UTGSeat: intPtr(12)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AutoBalance(ctx, tour.ID, []TableMoveInput{tc.input})
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if got := tableCounts(t, db, tour.ID); len(got) != 2 || got[0] != 6 || got[1] != 0 {
				t.Fatalf("failed balance must leave seating untouched, got %v", got)
			}
		})
	}

	outcome, err := svc.AutoBalance(ctx, tour.ID, []TableMoveInput{
		{TableID: t1.ID, PlayerIDs: []string{regs[4].PlayerID, regs[5].PlayerID}},
	})
	if err != nil {
		t.Fatalf("AutoBalance failed: %v", err)
	}
	if done, ok := outcome.(BalanceCompleted); !ok || done.SeatsAssigned != 3 {
		t.Fatalf("expected 3 seats assigned, got %#v", outcome)
	}
	if got := tableCounts(t, db, tour.ID); got[0] != 4 || got[1] != 3 {
		t.Fatalf("expected 4/3, got %v", got)
	}
	assertSeatingInvariants(t, db, tour.ID)
}

func TestAutoBalance_ReusesVacatedSeatRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newSeating(db)
	tour := testutil.CreateTournament(t, db, nil)
	ctx := context.Background()

	tbl := testutil.CreateTable(t, db, tour.ID, 1, 9)
	regs := testutil.RegisterPlayers(t, db, tour.ID, 3)
	testutil.SeatPlayer(t, db, tbl, 1, regs[0])
	testutil.SeatPlayer(t, db, tbl, 2, regs[1])

	if _, err := svc.EliminateSeat(ctx, regs[0].PlayerID, &tour.ID); err != nil {
		t.Fatalf("EliminateSeat failed: %v", err)
	}
	db.Model(&models.Registration{}).Where("id = ?", regs[0].ID).Update("is_active", false)

	if _, err := svc.AutoBalance(ctx, tour.ID, nil); err != nil {
		t.Fatalf("AutoBalance failed: %v", err)
	}

	var rows int64
	db.Model(&models.Seat{}).Where("table_id = ?", tbl.ID).Count(&rows)
	if rows != 2 {
		t.Fatalf("expected vacated seat row to be reused, got %d rows", rows)
	}
	var seat models.Seat
	db.First(&seat, "table_id = ? AND seat_number = ?", tbl.ID, 1)
	if !seat.IsOccupied || seat.PlayerID == nil || *seat.PlayerID != regs[2].PlayerID {
		t.Fatalf("expected %s in seat 1, got %+v", regs[2].PlayerID, seat)
	}
	assertSeatingInvariants(t, db, tour.ID)
}

func TestAutoBalance_EmptyField(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newSeating(db)
	tour := testutil.CreateTournament(t, db, nil)

	outcome, err := svc.AutoBalance(context.Background(), tour.ID, nil)
	if err != nil {
		t.Fatalf("AutoBalance failed: %v", err)
	}
	if done, ok := outcome.(BalanceCompleted); !ok || done != (BalanceCompleted{}) {
		t.Fatalf("expected empty completion, got %#v", outcome)
	}
}

func TestSelectMovers_UTGWraps(t *testing.T) {
	tbl := &models.TournamentTable{ID: "t", TableNumber: 1, MaxSeats: 9}
	var seats []*models.Seat
	for _, n := range []int{1, 3, 5, 7, 9} {
		id := "p" + string(rune('0'+n))
		seats = append(seats, &models.Seat{SeatNumber: n, IsOccupied: true, PlayerID: &id})
	}

	cases := []struct {
		utg  int
		want []int
	}{
		{utg: 8, want: []int{9, 1, 3}},
		{utg: 3, want: []int{3, 5, 7}},
		{utg: 4, want: []int{5, 7, 9}},
	}
	for _, tc := range cases {
		utg := tc.utg
		picked, err := selectMovers(tbl, seats, TableMoveInput{UTGSeat: &utg}, 3)
		if err != nil {
			t.Fatalf("utg %d: %v", tc.utg, err)
		}
		for i, s := range picked {
			if s.SeatNumber != tc.want[i] {
				t.Errorf("utg %d: expected seats %v, got seat %d at %d", tc.utg, tc.want, s.SeatNumber, i)
			}
		}
	}

	// Anchor past the last occupied seat wraps to the first.
	utg := 9
	seats = seats[:4]
	picked, _ := selectMovers(tbl, seats, TableMoveInput{UTGSeat: &utg}, 2)
	if picked[0].SeatNumber != 1 || picked[1].SeatNumber != 3 {
		t.Errorf("expected wrap to seats 1,3, got %d,%d", picked[0].SeatNumber, picked[1].SeatNumber)
	}
}

func TestManualReseat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, rec := newSeating(db)
	tour := testutil.CreateTournament(t, db, nil)
	ctx := context.Background()

	t1 := testutil.CreateTable(t, db, tour.ID, 1, 9)
	t2 := testutil.CreateTable(t, db, tour.ID, 2, 9)
	regs := testutil.RegisterPlayers(t, db, tour.ID, 2)
	testutil.SeatPlayer(t, db, t1, 1, regs[0])
	testutil.SeatPlayer(t, db, t2, 4, regs[1])

	if _, err := svc.ManualReseat(ctx, tour.ID, regs[0].PlayerID, t2.ID, 4); !errors.Is(err, ErrSeatOccupied) {
		t.Fatalf("expected ErrSeatOccupied, got %v", err)
	}
	if _, err := svc.ManualReseat(ctx, tour.ID, regs[0].PlayerID, t2.ID, 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for seat 10, got %v", err)
	}

	seat, err := svc.ManualReseat(ctx, tour.ID, regs[0].PlayerID, t2.ID, 6)
	if err != nil {
		t.Fatalf("ManualReseat failed: %v", err)
	}
	if seat.TableID != t2.ID || seat.SeatNumber != 6 || !seat.IsOccupied {
		t.Fatalf("unexpected seat %+v", seat)
	}
	if got := tableCounts(t, db, tour.ID); got[0] != 0 || got[1] != 2 {
		t.Fatalf("expected 0/2, got %v", got)
	}
	assertSeatingInvariants(t, db, tour.ID)
	if rec.Count(broadcast.EventSeatingChange) != 1 {
		t.Errorf("expected one seating_change, got %d", rec.Count(broadcast.EventSeatingChange))
	}

	// Same table move keeps the counter.
	if _, err := svc.ManualReseat(ctx, tour.ID, regs[0].PlayerID, t2.ID, 2); err != nil {
		t.Fatalf("same-table reseat failed: %v", err)
	}
	if got := tableCounts(t, db, tour.ID); got[1] != 2 {
		t.Fatalf("expected table 2 to keep 2 players, got %v", got)
	}
	assertSeatingInvariants(t, db, tour.ID)

	absent := testutil.RegisterPlayer(t, db, tour.ID, "absent", false, 0)
	if _, err := svc.ManualReseat(ctx, tour.ID, absent.PlayerID, t1.ID, 1); !errors.Is(err, ErrPlayerNotSeatable) {
		t.Fatalf("expected ErrPlayerNotSeatable, got %v", err)
	}
}

func TestEliminateSeat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newSeating(db)
	tour := testutil.CreateTournament(t, db, nil)
	ctx := context.Background()

	tbl := testutil.CreateTable(t, db, tour.ID, 1, 9)
	reg := testutil.RegisterPlayers(t, db, tour.ID, 1)[0]
	ghost := testutil.RegisterPlayer(t, db, tour.ID, "ghost", false, 0)
	testutil.SeatPlayer(t, db, tbl, 3, reg)

	seat, err := svc.EliminateSeat(ctx, ghost.PlayerID, &tour.ID)
	if err != nil || seat != nil {
		t.Fatalf("unseated elimination should be a no-op, got %+v, %v", seat, err)
	}
	if got := tableCounts(t, db, tour.ID); got[0] != 1 {
		t.Fatalf("no-op elimination changed counts: %v", got)
	}

	seat, err = svc.EliminateSeat(ctx, reg.PlayerID, nil)
	if err != nil {
		t.Fatalf("EliminateSeat failed: %v", err)
	}
	if seat == nil || seat.Status != models.SeatStatusEliminated || seat.IsOccupied || seat.PlayerID != nil {
		t.Fatalf("unexpected seat %+v", seat)
	}
	var after models.TournamentTable
	db.First(&after, "id = ?", tbl.ID)
	if after.OccupiedSeats != 0 || after.Status != models.TableStatusInactive {
		t.Fatalf("expected empty inactive table, got %+v", after)
	}
}

func intPtr(v int) *int { return &v }
