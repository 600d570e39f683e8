package billing

import (
	"errors"
	"fmt"

	"github.com/alnah/go-scribe/internal/format"
)

// ErrInsufficientFunds indicates the user's balance does not cover the cost.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUnknownTier indicates a model tier missing from the price table.
var ErrUnknownTier = errors.New("no price for model tier")

// ErrInvalidAmount indicates a negative amount or a non-positive duration.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrLedger wraps failures of the ledger backend itself.
var ErrLedger = errors.New("ledger unavailable")

// InsufficientFundsError carries the amounts shown to the user on decline.
// It matches ErrInsufficientFunds with errors.Is.
type InsufficientFundsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s: %s required, %s available",
		ErrInsufficientFunds, format.Credits(e.Required), format.Credits(e.Available))
}

// Is reports whether target is ErrInsufficientFunds.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
