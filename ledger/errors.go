package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned before any state is read.
	ErrInvalidInput = errors.New("invalid input")

	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")

	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrPersistence tags unexpected storage failures. The underlying cause
	// stays in the error chain.
	ErrPersistence = errors.New("persistence error")
)

// storeErr tags err as a persistence failure unless it is one of the
// ledger's own business errors.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrAccountNotFound, ErrAccountExists, ErrInsufficientFunds, ErrInsufficientShares, ErrInvalidInput, ErrPersistence} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
