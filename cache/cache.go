// Package cache is the fast key-value layer shared by the clock and the tick
// scheduler. Values are JSON encoded so the in-process and Redis backends are
// interchangeable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrMiss = errors.New("cache miss")

// Store is a byte-level key-value store with per-key TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error) // ErrMiss when absent or expired
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

const (
	TimerTTL     = 2 * time.Minute
	ActiveIDsTTL = 5 * time.Second

	ActiveIDsKey = "tournament:live:active_ids"
)

// TimerKey is the hot timer key for one tournament.
func TimerKey(tournamentID string) string {
	return "tournament:live:" + tournamentID
}

// Timer is the hot-path mirror of a live state.
type Timer struct {
	LevelRemainingTimeSeconds int  `json:"levelRemainingTimeSeconds"`
	CurrentLevelNumber        int  `json:"currentLevelNumber"`
	IsPaused                  bool `json:"isPaused"`

	// Held is set at zero when there is no level to roll over to, so ticks
	// stop asking the durable store until an operator changes the clock.
	Held bool `json:"held,omitempty"`
}

// GetJSON decodes key into dst. found is false on a miss.
func GetJSON(ctx context.Context, s Store, key string, dst any) (found bool, err error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cache key %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache key %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}

// GetTimer reads the hot timer for a tournament.
func GetTimer(ctx context.Context, s Store, tournamentID string) (*Timer, bool, error) {
	var t Timer
	found, err := GetJSON(ctx, s, TimerKey(tournamentID), &t)
	if err != nil || !found {
		return nil, false, err
	}
	return &t, true, nil
}

// PutTimer writes the hot timer and refreshes its TTL.
func PutTimer(ctx context.Context, s Store, tournamentID string, t Timer) error {
	return SetJSON(ctx, s, TimerKey(tournamentID), t, TimerTTL)
}
