package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Get(ctx, "missing"); err != ErrMiss {
		t.Fatalf("expected ErrMiss, got %v", err)
	}

	if err := s.Set(ctx, "k", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	// Rewriting under another TTL must not leave a stale copy behind.
	if err := s.Set(ctx, "k", []byte("v2"), 5*time.Second); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	got, _ = s.Get(ctx, "k")
	if string(got) != "v2" {
		t.Fatalf("expected v2 after TTL change, got %q", got)
	}

	if err := s.Delete(ctx, "k", "never-set"); err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if _, err := s.Get(ctx, "k"); err != ErrMiss {
		t.Fatalf("expected ErrMiss after delete, got %v", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "short", []byte("x"), 20*time.Millisecond); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, err := s.Get(ctx, "short"); err != ErrMiss {
		t.Fatalf("expected expired key to miss, got %v", err)
	}
}

func TestTimerRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, found, err := GetTimer(ctx, s, "t1"); err != nil || found {
		t.Fatalf("expected cold timer, found=%v err=%v", found, err)
	}
	want := Timer{LevelRemainingTimeSeconds: 42, CurrentLevelNumber: 3, IsPaused: true}
	if err := PutTimer(ctx, s, "t1", want); err != nil {
		t.Fatalf("PutTimer err: %v", err)
	}
	got, found, err := GetTimer(ctx, s, "t1")
	if err != nil || !found {
		t.Fatalf("GetTimer found=%v err=%v", found, err)
	}
	if *got != want {
		t.Fatalf("GetTimer = %+v, want %+v", *got, want)
	}
	if TimerKey("t1") != "tournament:live:t1" {
		t.Fatalf("unexpected key %s", TimerKey("t1"))
	}
}
