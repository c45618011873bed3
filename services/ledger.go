package services

import (
	"errors"
	"fmt"

	"club-live-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger is the deposit collaborator used by chip operations. Calls run in the
// caller's transaction so the balance change and the operation record commit
// together with the chip change.
type Ledger interface {
	Balance(tx *gorm.DB, playerID string) (int64, error)
	Debit(tx *gorm.DB, playerID string, amount int64, opType string, tournamentID *string) (*models.Operation, error)
	Credit(tx *gorm.DB, playerID string, amount int64, opType string, tournamentID *string) (*models.Operation, error)
}

// DepositLedger keeps balances in deposit_balances and appends operations.
type DepositLedger struct{}

func NewDepositLedger() *DepositLedger { return &DepositLedger{} }

func (l *DepositLedger) Balance(tx *gorm.DB, playerID string) (int64, error) {
	var bal models.DepositBalance
	err := tx.First(&bal, "player_id = ?", playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load balance for %s: %w", playerID, err)
	}
	return bal.Balance, nil
}

func (l *DepositLedger) Debit(tx *gorm.DB, playerID string, amount int64, opType string, tournamentID *string) (*models.Operation, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrInvalidInput)
	}
	var bal models.DepositBalance
	if err := tx.FirstOrInit(&bal, models.DepositBalance{PlayerID: playerID}).Error; err != nil {
		return nil, fmt.Errorf("load balance for %s: %w", playerID, err)
	}
	if bal.Balance < amount {
		return nil, fmt.Errorf("%w: player %s has %d, needs %d", ErrInsufficientBalance, playerID, bal.Balance, amount)
	}
	bal.Balance -= amount
	return l.apply(tx, &bal, amount, opType, tournamentID)
}

func (l *DepositLedger) Credit(tx *gorm.DB, playerID string, amount int64, opType string, tournamentID *string) (*models.Operation, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrInvalidInput)
	}
	var bal models.DepositBalance
	if err := tx.FirstOrInit(&bal, models.DepositBalance{PlayerID: playerID}).Error; err != nil {
		return nil, fmt.Errorf("load balance for %s: %w", playerID, err)
	}
	bal.Balance += amount
	return l.apply(tx, &bal, amount, opType, tournamentID)
}

func (l *DepositLedger) apply(tx *gorm.DB, bal *models.DepositBalance, amount int64, opType string, tournamentID *string) (*models.Operation, error) {
	if err := tx.Save(bal).Error; err != nil {
		return nil, fmt.Errorf("save balance for %s: %w", bal.PlayerID, err)
	}
	op := &models.Operation{
		ID:           uuid.NewString(),
		PlayerID:     bal.PlayerID,
		TournamentID: tournamentID,
		Type:         opType,
		Amount:       amount,
	}
	if err := tx.Create(op).Error; err != nil {
		return nil, fmt.Errorf("record %s operation: %w", opType, err)
	}
	return op, nil
}
