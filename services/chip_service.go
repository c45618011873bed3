package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"club-live-engine/broadcast"
	"club-live-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatsRefresher recomputes the live player count and average stack after a
// player leaves.
type StatsRefresher interface {
	RecalculateStats(ctx context.Context, tournamentID string) (*models.LiveState, error)
}

// ChipService handles paid top-ups, eliminations and level advance.
type ChipService struct {
	DB        *gorm.DB
	Ledger    Ledger
	Publisher broadcast.Publisher
	Stats     StatsRefresher // optional
}

func NewChipService(db *gorm.DB, ledger Ledger, pub broadcast.Publisher) *ChipService {
	return &ChipService{DB: db, Ledger: ledger, Publisher: pub}
}

// ChipResult is the registration after a top-up plus the ledger record.
type ChipResult struct {
	Registration *models.Registration `json:"registration"`
	Operation    *models.Operation    `json:"operation"`
}

// EliminationResult carries the written result and the vacated seat, which is
// nil for players who were never seated.
type EliminationResult struct {
	Result *models.Result `json:"result"`
	Seat   *models.Seat   `json:"seat"`
}

type LevelAdvance struct {
	Tournament   *models.Tournament `json:"tournament"`
	CurrentLevel *models.BlindLevel `json:"currentLevel"`
}

func (s *ChipService) Rebuy(ctx context.Context, tournamentID, playerID string) (*ChipResult, error) {
	return s.topUp(ctx, tournamentID, playerID, models.OperationRebuy)
}

func (s *ChipService) Addon(ctx context.Context, tournamentID, playerID string) (*ChipResult, error) {
	return s.topUp(ctx, tournamentID, playerID, models.OperationAddon)
}

func (s *ChipService) topUp(ctx context.Context, tournamentID, playerID, opType string) (*ChipResult, error) {
	var res ChipResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.First(&t, "id = ?", tournamentID).Error; err != nil {
			return notFound(err, "tournament", tournamentID)
		}

		var reg models.Registration
		if err := tx.First(&reg, "tournament_id = ? AND player_id = ?", tournamentID, playerID).Error; err != nil {
			return notFound(err, "registration for player", playerID)
		}
		if !reg.IsActive {
			return fmt.Errorf("%w: registration for player %s is not active", ErrInvalidState, playerID)
		}

		var (
			chips, cost  int64
			count, limit *int
		)
		switch opType {
		case models.OperationRebuy:
			if t.Status != models.TournamentStatusLateReg && t.Status != models.TournamentStatusRunning {
				return fmt.Errorf("%w (status %s)", ErrRebuyNotAllowed, t.Status)
			}
			chips, cost = t.RebuyChips, t.RebuyCost
			count, limit = &reg.RebuyCount, &t.MaxRebuys
		case models.OperationAddon:
			if t.Status != models.TournamentStatusRunning {
				return fmt.Errorf("%w (status %s)", ErrAddonNotAllowed, t.Status)
			}
			chips, cost = t.AddonChips, t.AddonCost
			count, limit = &reg.AddonCount, &t.MaxAddons
		}
		if *limit > 0 && *count >= *limit {
			return fmt.Errorf("%w: %s %d of %d", ErrCapReached, opType, *count, *limit)
		}

		op, err := s.Ledger.Debit(tx, playerID, cost, opType, &tournamentID)
		if err != nil {
			return err
		}

		reg.CurrentStack += chips
		*count++
		if err := tx.Model(&reg).Updates(map[string]any{
			"current_stack": reg.CurrentStack,
			"rebuy_count":   reg.RebuyCount,
			"addon_count":   reg.AddonCount,
		}).Error; err != nil {
			return fmt.Errorf("update registration: %w", err)
		}

		res = ChipResult{Registration: &reg, Operation: op}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Chips] %s for player %s in tournament %s (stack=%d)", opType, playerID, tournamentID, res.Registration.CurrentStack)
	s.refreshStats(ctx, tournamentID)
	return &res, nil
}

// Eliminate records the player's finish, vacates their seat if they have one
// and credits an optional prize.
func (s *ChipService) Eliminate(ctx context.Context, tournamentID, playerID string, finishPosition int, prize int64) (*EliminationResult, error) {
	if finishPosition < 1 {
		return nil, fmt.Errorf("%w: finish position must be positive", ErrInvalidInput)
	}
	if prize < 0 {
		return nil, fmt.Errorf("%w: prize must not be negative", ErrInvalidInput)
	}

	var (
		out EliminationResult
		tbl *models.TournamentTable
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg models.Registration
		if err := tx.First(&reg, "tournament_id = ? AND player_id = ?", tournamentID, playerID).Error; err != nil {
			return notFound(err, "registration for player", playerID)
		}

		var existing models.Result
		err := tx.First(&existing, "tournament_id = ? AND player_id = ?", tournamentID, playerID).Error
		if err == nil {
			return fmt.Errorf("%w (player %s, position %d)", ErrAlreadyEliminated, playerID, existing.FinishPosition)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Model(&reg).Updates(map[string]any{"is_active": false, "current_stack": 0}).Error; err != nil {
			return fmt.Errorf("deactivate registration: %w", err)
		}

		result := models.Result{
			ID:             uuid.NewString(),
			TournamentID:   tournamentID,
			PlayerID:       playerID,
			FinishPosition: finishPosition,
			IsFinalTable:   finishPosition <= models.FinalTablePositions,
			PrizeAmount:    prize,
		}
		if err := tx.Create(&result).Error; err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		out.Result = &result

		seat, table, err := eliminateSeatTx(tx, playerID, &tournamentID)
		if err != nil {
			return err
		}
		out.Seat, tbl = seat, table

		if prize > 0 {
			if _, err := s.Ledger.Credit(tx, playerID, prize, models.OperationPrize, &tournamentID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Chips] 🏁 Player %s eliminated from tournament %s in position %d", playerID, tournamentID, finishPosition)
	room := broadcast.TournamentRoom(tournamentID)
	s.Publisher.Publish(room, broadcast.EventPlayerEliminated, out)
	if tbl != nil {
		s.Publisher.Publish(room, broadcast.EventTableUpdate, tbl)
		s.Publisher.Publish(broadcast.TableRoom(tbl.ID), broadcast.EventTableUpdate, tbl)
	}
	s.refreshStats(ctx, tournamentID)
	return &out, nil
}

// MoveToNextLevel advances the tournament one level along its blind structure.
// It returns ErrNoNextLevel once the structure is exhausted.
func (s *ChipService) MoveToNextLevel(ctx context.Context, tournamentID string) (*LevelAdvance, error) {
	var adv LevelAdvance
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.First(&t, "id = ?", tournamentID).Error; err != nil {
			return notFound(err, "tournament", tournamentID)
		}
		if t.BlindStructureID == nil {
			return ErrNoBlindStructure
		}

		var level models.BlindLevel
		err := tx.First(&level, "structure_id = ? AND level_number = ?", *t.BlindStructureID, t.CurrentLevelNumber+1).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoNextLevel
		}
		if err != nil {
			return fmt.Errorf("load level %d: %w", t.CurrentLevelNumber+1, err)
		}

		if err := tx.Model(&models.Tournament{}).Where("id = ?", t.ID).
			Update("current_level_number", level.LevelNumber).Error; err != nil {
			return fmt.Errorf("advance tournament level: %w", err)
		}
		t.CurrentLevelNumber = level.LevelNumber
		adv = LevelAdvance{Tournament: &t, CurrentLevel: &level}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &adv, nil
}

func (s *ChipService) refreshStats(ctx context.Context, tournamentID string) {
	if s.Stats == nil {
		return
	}
	if _, err := s.Stats.RecalculateStats(ctx, tournamentID); err != nil {
		log.Printf("[Chips] Failed to refresh stats for %s: %v", tournamentID, err)
	}
}
