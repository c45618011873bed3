package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"club-live-engine/cache"
	"club-live-engine/models"
	"club-live-engine/testutil"
)

// hookedStore runs onSet once, before the first write to key lands.
type hookedStore struct {
	*cache.MemoryStore
	key   string
	onSet func()
}

func (s *hookedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == s.key && s.onSet != nil {
		fn := s.onSet
		s.onSet = nil
		fn()
	}
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

type countingAdvancer struct {
	mu    sync.Mutex
	inner LevelAdvancer
	calls int
}

func (a *countingAdvancer) MoveToNextLevel(ctx context.Context, tournamentID string) (*LevelAdvance, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.inner.MoveToNextLevel(ctx, tournamentID)
}

func (a *countingAdvancer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func TestPause_DuringTickIsKept(t *testing.T) {
	f := newClock(t)
	tour := f.tournamentWithLevels(t, 10)
	ctx := context.Background()

	if _, err := f.live.GetOrCreate(ctx, tour.ID); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	store := &hookedStore{MemoryStore: f.store, key: cache.TimerKey(tour.ID)}
	f.live.Cache = store

	paused := make(chan error, 1)
	store.onSet = func() {
		// The operator pauses after the tick has read the timer but before
		// its write lands.
		go func() {
			_, err := f.live.Pause(ctx, tour.ID)
			paused <- err
		}()
		time.Sleep(50 * time.Millisecond)
	}

	f.tick(t, tour.ID, 1)
	if err := <-paused; err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	timer := f.tick(t, tour.ID, 5)
	if !timer.IsPaused || timer.LevelRemainingTimeSeconds != 599 {
		t.Fatalf("pause lost to concurrent tick: %+v", timer)
	}

	ls, err := f.live.GetOrCreate(ctx, tour.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if !ls.IsPaused || ls.Status != models.LiveStatusPaused || ls.LevelRemainingTimeSeconds != 599 {
		t.Fatalf("expected paused at 599s, got paused=%v status=%s remaining=%d",
			ls.IsPaused, ls.Status, ls.LevelRemainingTimeSeconds)
	}
}

func TestTick_HeldClockSkipsStore(t *testing.T) {
	f := newClock(t)
	tour := f.tournamentWithLevels(t, 1)
	ctx := context.Background()
	levels := &countingAdvancer{inner: f.chips}
	f.live.Levels = levels

	if _, err := f.live.UpdateLevelTime(ctx, tour.ID, 0); err != nil {
		t.Fatalf("UpdateLevelTime failed: %v", err)
	}

	timer := f.tick(t, tour.ID, 10)
	if !timer.Held || timer.LevelRemainingTimeSeconds != 0 || timer.CurrentLevelNumber != 1 {
		t.Fatalf("expected held timer at level 1/0s, got %+v", timer)
	}
	if n := levels.count(); n != 1 {
		t.Fatalf("expected one level lookup while held, got %d", n)
	}

	// An operator change releases the hold.
	if _, err := f.live.UpdateLevelTime(ctx, tour.ID, 3); err != nil {
		t.Fatalf("UpdateLevelTime failed: %v", err)
	}
	timer = f.tick(t, tour.ID, 1)
	if timer.Held || timer.LevelRemainingTimeSeconds != 2 {
		t.Fatalf("expected running clock at 2s, got %+v", timer)
	}
}

func TestTick_HeldWithoutStructure(t *testing.T) {
	f := newClock(t)
	tour := testutil.CreateTournament(t, f.db, nil)
	ctx := context.Background()
	levels := &countingAdvancer{inner: f.chips}
	f.live.Levels = levels

	if _, err := f.live.UpdateLevelTime(ctx, tour.ID, 0); err != nil {
		t.Fatalf("UpdateLevelTime failed: %v", err)
	}
	if _, err := f.live.Tick(ctx, tour.ID); !errors.Is(err, ErrNoBlindStructure) {
		t.Fatalf("expected ErrNoBlindStructure, got %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := f.live.Tick(ctx, tour.ID); err != nil {
			t.Fatalf("held tick %d failed: %v", i+1, err)
		}
	}
	if n := levels.count(); n != 1 {
		t.Fatalf("expected one level lookup while held, got %d", n)
	}
}
