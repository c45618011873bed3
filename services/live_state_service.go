package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"club-live-engine/broadcast"
	"club-live-engine/cache"
	"club-live-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LevelAdvancer moves a tournament to its next blind level.
type LevelAdvancer interface {
	MoveToNextLevel(ctx context.Context, tournamentID string) (*LevelAdvance, error)
}

// LiveStateService is the clock for running tournaments. The cached Timer
// drives the per-second countdown; the LiveState row is written on rollover,
// operator actions and reconciliation, and rebuilds the Timer after a miss.
type LiveStateService struct {
	DB        *gorm.DB
	Cache     cache.Store
	Publisher broadcast.Publisher
	Levels    LevelAdvancer

	locks tournamentLocks
}

// tournamentLocks serializes clock changes per tournament so a tick cannot
// write back a timer read before an operator change.
type tournamentLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *tournamentLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	m, ok := l.m[id]
	if !ok {
		m = &sync.Mutex{}
		l.m[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func NewLiveStateService(db *gorm.DB, store cache.Store, pub broadcast.Publisher, levels LevelAdvancer) *LiveStateService {
	return &LiveStateService{DB: db, Cache: store, Publisher: pub, Levels: levels}
}

type LevelChange struct {
	LiveState *models.LiveState  `json:"liveState"`
	Level     *models.BlindLevel `json:"level"`
}

// GetOrCreate returns the tournament's live state, creating it at the current
// level (level 1 for a fresh tournament) when missing. Cached countdown values
// take precedence over the durable row.
func (s *LiveStateService) GetOrCreate(ctx context.Context, tournamentID string) (*models.LiveState, error) {
	defer s.locks.lock(tournamentID)()

	ls, created, err := s.loadOrCreate(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	if created {
		log.Printf("[Clock] Live state created for tournament %s at level %d (%ds)",
			tournamentID, ls.CurrentLevelNumber, ls.LevelRemainingTimeSeconds)
		s.putTimer(ctx, ls)
		return ls, nil
	}

	timer, found, err := cache.GetTimer(ctx, s.Cache, tournamentID)
	if err != nil {
		log.Printf("[Clock] Cache read failed for %s: %v", tournamentID, err)
	}
	if found {
		applyTimer(ls, timer)
	}
	return ls, nil
}

func (s *LiveStateService) loadOrCreate(ctx context.Context, tournamentID string) (*models.LiveState, bool, error) {
	var (
		ls      models.LiveState
		created bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&ls, "tournament_id = ?", tournamentID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var t models.Tournament
		if err := tx.First(&t, "id = ?", tournamentID).Error; err != nil {
			return notFound(err, "tournament", tournamentID)
		}
		if t.CurrentLevelNumber < 1 {
			t.CurrentLevelNumber = 1
			if err := tx.Model(&models.Tournament{}).Where("id = ?", t.ID).
				Update("current_level_number", 1).Error; err != nil {
				return fmt.Errorf("set initial level: %w", err)
			}
		}

		level, err := levelFor(tx, &t, t.CurrentLevelNumber)
		if err != nil {
			return err
		}
		duration := models.DefaultLevelSeconds()
		if level != nil {
			duration = level.DurationSeconds()
		}

		ls = models.LiveState{
			ID:                        uuid.NewString(),
			TournamentID:              tournamentID,
			CurrentLevelNumber:        t.CurrentLevelNumber,
			LevelRemainingTimeSeconds: duration,
			Status:                    statusLabel(false, level),
			LastUpdated:               time.Now().UTC(),
		}
		if err := fillStats(tx, &ls); err != nil {
			return err
		}
		if err := tx.Create(&ls).Error; err != nil {
			return fmt.Errorf("create live state: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &ls, created, nil
}

// Tick advances the clock by one second. A tick at zero remaining rolls over
// to the next level; once the blind structure is exhausted (or missing) the
// clock holds at zero without touching the store again.
func (s *LiveStateService) Tick(ctx context.Context, tournamentID string) (*cache.Timer, error) {
	defer s.locks.lock(tournamentID)()

	timer, found, err := cache.GetTimer(ctx, s.Cache, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("read timer: %w", err)
	}
	if !found {
		timer, err = s.rebuildTimer(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
	}

	if timer.IsPaused || timer.Held {
		return timer, nil
	}

	if timer.LevelRemainingTimeSeconds > 0 {
		timer.LevelRemainingTimeSeconds--
		if err := cache.PutTimer(ctx, s.Cache, tournamentID, *timer); err != nil {
			return nil, fmt.Errorf("write timer: %w", err)
		}
		s.Publisher.Publish(broadcast.TournamentRoom(tournamentID), broadcast.EventTimerTick, timer)
		return timer, nil
	}

	ls, err := s.advance(ctx, tournamentID)
	if errors.Is(err, ErrNoNextLevel) || errors.Is(err, ErrNoBlindStructure) {
		// Nothing to roll over to: hold at zero until the floor changes the clock.
		timer.LevelRemainingTimeSeconds = 0
		timer.Held = true
		if werr := cache.PutTimer(ctx, s.Cache, tournamentID, *timer); werr != nil {
			return nil, fmt.Errorf("write timer: %w", werr)
		}
		if errors.Is(err, ErrNoNextLevel) {
			log.Printf("[Clock] ⏸️ Tournament %s holds at 0: blind structure exhausted", tournamentID)
			return timer, nil
		}
		return timer, err
	}
	if err != nil {
		return nil, err
	}
	return timerOf(ls), nil
}

// rebuildTimer restores a missing hot timer from the durable row.
func (s *LiveStateService) rebuildTimer(ctx context.Context, tournamentID string) (*cache.Timer, error) {
	ls, _, err := s.loadOrCreate(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	timer := timerOf(ls)
	if err := cache.PutTimer(ctx, s.Cache, tournamentID, *timer); err != nil {
		return nil, fmt.Errorf("write timer: %w", err)
	}
	log.Printf("[Clock] ♻️ Rebuilt timer for %s from durable state (level %d, %ds)",
		tournamentID, timer.CurrentLevelNumber, timer.LevelRemainingTimeSeconds)
	return timer, nil
}

// SkipLevel is the operator's "next level" and shares the rollover path.
func (s *LiveStateService) SkipLevel(ctx context.Context, tournamentID string) (*models.LiveState, error) {
	defer s.locks.lock(tournamentID)()

	if _, _, err := s.loadOrCreate(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.advance(ctx, tournamentID)
}

// advance moves the tournament to its next level and writes the new level and
// its full duration to both stores.
func (s *LiveStateService) advance(ctx context.Context, tournamentID string) (*models.LiveState, error) {
	adv, err := s.Levels.MoveToNextLevel(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	var ls models.LiveState
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ls, "tournament_id = ?", tournamentID).Error; err != nil {
			return notFound(err, "live state for tournament", tournamentID)
		}
		ls.CurrentLevelNumber = adv.CurrentLevel.LevelNumber
		ls.LevelRemainingTimeSeconds = adv.CurrentLevel.DurationSeconds()
		ls.Status = statusLabel(ls.IsPaused, adv.CurrentLevel)
		ls.LastUpdated = time.Now().UTC()
		return tx.Save(&ls).Error
	})
	if err != nil {
		return nil, fmt.Errorf("persist level %d: %w", adv.CurrentLevel.LevelNumber, err)
	}

	s.putTimer(ctx, &ls)
	log.Printf("[Clock] ⏭️ Tournament %s advanced to level %d (%ds)",
		tournamentID, ls.CurrentLevelNumber, ls.LevelRemainingTimeSeconds)
	s.Publisher.Publish(broadcast.TournamentRoom(tournamentID), broadcast.EventLevelChange,
		LevelChange{LiveState: &ls, Level: adv.CurrentLevel})
	return &ls, nil
}

func (s *LiveStateService) Pause(ctx context.Context, tournamentID string) (*models.LiveState, error) {
	return s.mutate(ctx, tournamentID, func(_ *gorm.DB, ls *models.LiveState, level *models.BlindLevel) error {
		ls.IsPaused = true
		ls.Status = statusLabel(true, level)
		return nil
	})
}

func (s *LiveStateService) Resume(ctx context.Context, tournamentID string) (*models.LiveState, error) {
	return s.mutate(ctx, tournamentID, func(_ *gorm.DB, ls *models.LiveState, level *models.BlindLevel) error {
		ls.IsPaused = false
		ls.Status = statusLabel(false, level)
		return nil
	})
}

// UpdateLevelTime overrides the remaining seconds of the current level.
func (s *LiveStateService) UpdateLevelTime(ctx context.Context, tournamentID string, seconds int) (*models.LiveState, error) {
	if seconds < 0 {
		return nil, fmt.Errorf("%w: remaining seconds must not be negative", ErrInvalidInput)
	}
	return s.mutate(ctx, tournamentID, func(_ *gorm.DB, ls *models.LiveState, _ *models.BlindLevel) error {
		ls.LevelRemainingTimeSeconds = seconds
		return nil
	})
}

// RecalculateStats refreshes players count and average stack.
func (s *LiveStateService) RecalculateStats(ctx context.Context, tournamentID string) (*models.LiveState, error) {
	return s.mutate(ctx, tournamentID, func(tx *gorm.DB, ls *models.LiveState, _ *models.BlindLevel) error {
		return fillStats(tx, ls)
	})
}

// mutate runs an operator change through the durable path: the cached
// countdown is folded into the row, fn is applied, the row is saved, the cache
// refreshed and a live_state_update broadcast.
func (s *LiveStateService) mutate(ctx context.Context, tournamentID string, fn func(tx *gorm.DB, ls *models.LiveState, level *models.BlindLevel) error) (*models.LiveState, error) {
	defer s.locks.lock(tournamentID)()

	if _, _, err := s.loadOrCreate(ctx, tournamentID); err != nil {
		return nil, err
	}
	timer, found, err := cache.GetTimer(ctx, s.Cache, tournamentID)
	if err != nil {
		log.Printf("[Clock] Cache read failed for %s: %v", tournamentID, err)
	}

	var ls models.LiveState
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ls, "tournament_id = ?", tournamentID).Error; err != nil {
			return notFound(err, "live state for tournament", tournamentID)
		}
		if found {
			applyTimer(&ls, timer)
		}

		var t models.Tournament
		if err := tx.First(&t, "id = ?", tournamentID).Error; err != nil {
			return notFound(err, "tournament", tournamentID)
		}
		level, err := levelFor(tx, &t, ls.CurrentLevelNumber)
		if err != nil {
			return err
		}

		if err := fn(tx, &ls, level); err != nil {
			return err
		}
		ls.LastUpdated = time.Now().UTC()
		return tx.Save(&ls).Error
	})
	if err != nil {
		return nil, err
	}

	s.putTimer(ctx, &ls)
	s.Publisher.Publish(broadcast.TournamentRoom(tournamentID), broadcast.EventLiveStateUpdate, &ls)
	return &ls, nil
}

// ReconcileTimers copies cached countdowns of active tournaments into their
// durable rows so a restart resumes close to where the clock stopped.
func (s *LiveStateService) ReconcileTimers(ctx context.Context) (int, error) {
	var states []models.LiveState
	err := s.DB.WithContext(ctx).
		Joins("JOIN tournaments ON tournaments.id = live_states.tournament_id").
		Where("tournaments.status IN ?", []string{models.TournamentStatusRunning, models.TournamentStatusLateReg}).
		Find(&states).Error
	if err != nil {
		return 0, fmt.Errorf("list live states: %w", err)
	}

	synced := 0
	for i := range states {
		if s.reconcileOne(ctx, &states[i]) {
			synced++
		}
	}
	return synced, nil
}

func (s *LiveStateService) reconcileOne(ctx context.Context, ls *models.LiveState) bool {
	defer s.locks.lock(ls.TournamentID)()

	timer, found, err := cache.GetTimer(ctx, s.Cache, ls.TournamentID)
	if err != nil {
		log.Printf("[Clock] Reconcile cache read failed for %s: %v", ls.TournamentID, err)
		return false
	}
	if !found || (timer.LevelRemainingTimeSeconds == ls.LevelRemainingTimeSeconds &&
		timer.CurrentLevelNumber == ls.CurrentLevelNumber && timer.IsPaused == ls.IsPaused) {
		return false
	}
	err = s.DB.WithContext(ctx).Model(&models.LiveState{}).Where("id = ?", ls.ID).Updates(map[string]any{
		"level_remaining_time_seconds": timer.LevelRemainingTimeSeconds,
		"current_level_number":         timer.CurrentLevelNumber,
		"is_paused":                    timer.IsPaused,
		"last_updated":                 time.Now().UTC(),
	}).Error
	if err != nil {
		log.Printf("[Clock] Reconcile write failed for %s: %v", ls.TournamentID, err)
		return false
	}
	return true
}

func (s *LiveStateService) putTimer(ctx context.Context, ls *models.LiveState) {
	if err := cache.PutTimer(ctx, s.Cache, ls.TournamentID, *timerOf(ls)); err != nil {
		log.Printf("[Clock] Cache write failed for %s: %v", ls.TournamentID, err)
	}
}

func timerOf(ls *models.LiveState) *cache.Timer {
	return &cache.Timer{
		LevelRemainingTimeSeconds: ls.LevelRemainingTimeSeconds,
		CurrentLevelNumber:        ls.CurrentLevelNumber,
		IsPaused:                  ls.IsPaused,
	}
}

func applyTimer(ls *models.LiveState, t *cache.Timer) {
	ls.LevelRemainingTimeSeconds = t.LevelRemainingTimeSeconds
	ls.CurrentLevelNumber = t.CurrentLevelNumber
	ls.IsPaused = t.IsPaused
}

// levelFor returns the structure level with the given number, or nil when the
// tournament has no structure or the level is missing.
func levelFor(tx *gorm.DB, t *models.Tournament, number int) (*models.BlindLevel, error) {
	if t.BlindStructureID == nil {
		return nil, nil
	}
	var level models.BlindLevel
	err := tx.First(&level, "structure_id = ? AND level_number = ?", *t.BlindStructureID, number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load level %d: %w", number, err)
	}
	return &level, nil
}

func statusLabel(paused bool, level *models.BlindLevel) string {
	switch {
	case paused:
		return models.LiveStatusPaused
	case level != nil && level.IsBreak:
		return models.LiveStatusBreak
	default:
		return models.LiveStatusRunning
	}
}

// fillStats counts players in occupied, non-eliminated seats and averages the
// stacks of active registrations.
func fillStats(tx *gorm.DB, ls *models.LiveState) error {
	var seated int64
	err := tx.Model(&models.Seat{}).
		Joins("JOIN tournament_tables ON tournament_tables.id = seats.table_id").
		Where("tournament_tables.tournament_id = ? AND seats.is_occupied = ? AND seats.status <> ?",
			ls.TournamentID, true, models.SeatStatusEliminated).
		Count(&seated).Error
	if err != nil {
		return fmt.Errorf("count seated players: %w", err)
	}

	var agg struct {
		Total   int64
		Players int64
	}
	err = tx.Model(&models.Registration{}).
		Select("COALESCE(SUM(current_stack), 0) AS total, COUNT(*) AS players").
		Where("tournament_id = ? AND is_active = ?", ls.TournamentID, true).
		Scan(&agg).Error
	if err != nil {
		return fmt.Errorf("aggregate stacks: %w", err)
	}

	ls.PlayersCount = int(seated)
	ls.AverageStack = 0
	if agg.Players > 0 {
		ls.AverageStack = agg.Total / agg.Players
	}
	return nil
}
