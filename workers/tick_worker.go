package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"club-live-engine/cache"
	"club-live-engine/models"

	"gorm.io/gorm"
)

// Clock is the per-tournament tick the scheduler drives.
type Clock interface {
	Tick(ctx context.Context, tournamentID string) (*cache.Timer, error)
}

// TickScheduler drives every active tournament's clock once per cycle. The
// cycle runs every activeInterval while any tournament is live and every
// idleInterval otherwise.
type TickScheduler struct {
	db             *gorm.DB
	cache          cache.Store
	clock          Clock
	activeInterval time.Duration
	idleInterval   time.Duration

	done chan struct{}
}

func NewTickScheduler(db *gorm.DB, store cache.Store, clock Clock, activeInterval, idleInterval time.Duration) *TickScheduler {
	if activeInterval <= 0 {
		activeInterval = time.Second
	}
	if idleInterval <= 0 {
		idleInterval = 5 * time.Second
	}
	return &TickScheduler{
		db:             db,
		cache:          store,
		clock:          clock,
		activeInterval: activeInterval,
		idleInterval:   idleInterval,
		done:           make(chan struct{}),
	}
}

func (w *TickScheduler) Start(ctx context.Context) {
	log.Printf("⏱️ Starting Tick Scheduler (active=%s, idle=%s)…", w.activeInterval, w.idleInterval)
	go w.run(ctx)
}

// Done is closed once the loop has exited.
func (w *TickScheduler) Done() <-chan struct{} { return w.done }

func (w *TickScheduler) run(ctx context.Context) {
	defer close(w.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			next := w.idleInterval
			if w.RunCycle(ctx) > 0 {
				next = w.activeInterval
			}
			timer.Reset(next)
		case <-ctx.Done():
			log.Println("⏹️ Tick Scheduler stopped")
			return
		}
	}
}

// RunCycle ticks each active tournament once and returns how many were
// active. A failing tournament is logged and skipped.
func (w *TickScheduler) RunCycle(ctx context.Context) int {
	ids, err := w.activeIDs(ctx)
	if err != nil {
		log.Printf("[TickScheduler] ❌ Active tournament lookup failed: %v", err)
		return 0
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		w.tickOne(ctx, id)
	}
	return len(ids)
}

func (w *TickScheduler) tickOne(ctx context.Context, id string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[TickScheduler] ❌ Tick panicked for tournament %s: %v", id, r)
		}
	}()
	if _, err := w.clock.Tick(ctx, id); err != nil {
		log.Printf("[TickScheduler] ⚠️ Tick failed for tournament %s: %v", id, err)
	}
}

// activeIDs reads the short-lived id list from cache, falling back to a store
// scan that repopulates it.
func (w *TickScheduler) activeIDs(ctx context.Context) ([]string, error) {
	var ids []string
	found, err := cache.GetJSON(ctx, w.cache, cache.ActiveIDsKey, &ids)
	if err != nil {
		log.Printf("[TickScheduler] Cache read failed, scanning store: %v", err)
	}
	if found {
		return ids, nil
	}

	ids = ids[:0]
	err = w.db.WithContext(ctx).Model(&models.Tournament{}).
		Where("status IN ?", []string{models.TournamentStatusRunning, models.TournamentStatusLateReg}).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("scan active tournaments: %w", err)
	}
	if err := cache.SetJSON(ctx, w.cache, cache.ActiveIDsKey, ids, cache.ActiveIDsTTL); err != nil {
		log.Printf("[TickScheduler] Cache write failed for active ids: %v", err)
	}
	return ids, nil
}
