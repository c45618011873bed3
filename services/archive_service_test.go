package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"club-live-engine/cache"
	"club-live-engine/models"
	"club-live-engine/testutil"
)

type memoryExporter struct {
	objects map[string][]byte
}

func (e *memoryExporter) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	if e.objects == nil {
		e.objects = make(map[string][]byte)
	}
	e.objects[key] = body
	return "https://cdn.example.com/" + key, nil
}

func TestArchiveTeardown(t *testing.T) {
	f := newClock(t)
	ctx := context.Background()
	exp := &memoryExporter{}
	archive := NewArchiveService(f.db, f.store, exp)

	tour := f.tournamentWithLevels(t, 10)
	f.live.GetOrCreate(ctx, tour.ID)
	tbl := testutil.CreateTable(t, f.db, tour.ID, 1, 9)
	reg := testutil.RegisterPlayers(t, f.db, tour.ID, 1)[0]
	testutil.SeatPlayer(t, f.db, tbl, 1, reg)
	if _, err := f.chips.Eliminate(ctx, tour.ID, reg.PlayerID, 1, 0); err != nil {
		t.Fatalf("Eliminate failed: %v", err)
	}
	cache.SetJSON(ctx, f.store, cache.ActiveIDsKey, []string{tour.ID}, cache.ActiveIDsTTL)

	if _, err := archive.Teardown(ctx, tour.ID); !errors.Is(err, ErrNotArchived) {
		t.Fatalf("expected ErrNotArchived for a running tournament, got %v", err)
	}

	f.db.Model(&models.Tournament{}).Where("id = ?", tour.ID).Update("status", models.TournamentStatusArchived)
	swept, err := archive.SweepArchived(ctx)
	if err != nil || swept != 1 {
		t.Fatalf("expected sweep to tear down 1 tournament, got %d, %v", swept, err)
	}

	key := "archives/friday-night-deepstack-" + tour.ID + ".json"
	body, ok := exp.objects[key]
	if !ok {
		t.Fatalf("expected snapshot under %s, got %v", key, exp.objects)
	}
	var snap ArchiveSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("snapshot is not JSON: %v", err)
	}
	if snap.Tournament.ID != tour.ID || len(snap.Results) != 1 || snap.LiveState == nil {
		t.Fatalf("incomplete snapshot %+v", snap)
	}

	for _, model := range []any{&models.LiveState{}, &models.TournamentTable{}, &models.Seat{}} {
		var n int64
		f.db.Model(model).Count(&n)
		if n != 0 {
			t.Errorf("%T rows left after teardown: %d", model, n)
		}
	}
	var results int64
	f.db.Model(&models.Result{}).Count(&results)
	if results != 1 {
		t.Errorf("results must survive teardown, got %d", results)
	}

	if _, found, _ := cache.GetTimer(ctx, f.store, tour.ID); found {
		t.Error("timer should be evicted")
	}
	if _, err := f.store.Get(ctx, cache.ActiveIDsKey); !errors.Is(err, cache.ErrMiss) {
		t.Error("active id list should be evicted")
	}

	swept, _ = archive.SweepArchived(ctx)
	if swept != 0 {
		t.Fatalf("second sweep should find nothing, got %d", swept)
	}
}
