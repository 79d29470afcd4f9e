package planner

import (
	"errors"
	"fmt"

	"github.com/alphabill-org/txplanner/asset"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNonConvergence     = fmt.Errorf("failed to plan transaction after %d iterations", MaxIterations)
	ErrInvariantViolation = errors.New("transaction plan invariant violated")
)

// InsufficientFundsError is returned when the source account runs out of
// notes of an asset while the transaction still requires it.
type InsufficientFundsError struct {
	AssetID asset.ID
	Needed  asset.Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("ran out of notes to spend while planning transaction, need %s of asset %s", e.Needed, e.AssetID)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
