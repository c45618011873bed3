package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error categories. The HTTP layer maps them to status codes; every specific
// error below wraps exactly one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
)

var (
	ErrNoNextLevel         = fmt.Errorf("%w: no next level in blind structure", ErrInvalidState)
	ErrNoBlindStructure    = fmt.Errorf("%w: tournament has no blind structure", ErrInvalidState)
	ErrSeatOccupied        = fmt.Errorf("%w: destination seat is occupied", ErrInvalidState)
	ErrInsufficientBalance = fmt.Errorf("%w: insufficient deposit balance", ErrInvalidState)
	ErrRebuyNotAllowed     = fmt.Errorf("%w: rebuy requires LATE_REG or RUNNING status", ErrInvalidState)
	ErrAddonNotAllowed     = fmt.Errorf("%w: add-on requires RUNNING status", ErrInvalidState)
	ErrCapReached          = fmt.Errorf("%w: limit reached", ErrInvalidState)
	ErrAlreadyEliminated   = fmt.Errorf("%w: player already has a result", ErrInvalidState)
	ErrPlayerNotSeatable   = fmt.Errorf("%w: player must be arrived with an active registration", ErrInvalidState)
	ErrNotArchived         = fmt.Errorf("%w: tournament is not archived", ErrInvalidState)
)

// notFound translates gorm.ErrRecordNotFound into ErrNotFound naming the entity.
func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
	}
	return fmt.Errorf("load %s %s: %w", entity, id, err)
}
