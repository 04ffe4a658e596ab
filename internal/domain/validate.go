package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected field value on an entity.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError creates a ValidationError with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks the fields a new account must carry. Account numbers and
// currency codes are display-only and deliberately not validated against any
// registry.
func (a *BankAccount) Validate() error {
	if a.Name == "" {
		return NewValidationError("account name is required")
	}
	return nil
}

// Validate checks the fields a new transaction must carry. Amount is
// unsigned; direction comes from Type.
func (t *Transaction) Validate() error {
	if t.AccountID == "" {
		return NewValidationError("transaction account is required")
	}
	if t.Amount < 0 {
		return NewValidationError("transaction amount must not be negative")
	}
	if t.Type != TypeIncome && t.Type != TypeExpense {
		return NewValidationError(fmt.Sprintf("transaction type must be %s or %s", TypeIncome, TypeExpense))
	}
	if t.Date.IsZero() {
		return NewValidationError("transaction date is required")
	}
	return nil
}

// Validate checks the fields a new stock holding must carry.
func (h *StockHolding) Validate() error {
	if h.Symbol == "" {
		return NewValidationError("stock symbol is required")
	}
	if h.Shares < 0 {
		return NewValidationError("share quantity must not be negative")
	}
	if h.AverageCost < 0 || h.CurrentPrice < 0 {
		return NewValidationError("stock prices must not be negative")
	}
	return nil
}
