package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Error types for consistent error handling across the bank.
// Callers branch on them with errors.As.

// ErrAccountNotFound indicates an account number did not resolve.
type ErrAccountNotFound struct {
	AccountNumber string
}

func (e *ErrAccountNotFound) Error() string {
	return fmt.Sprintf("account not found: %s", e.AccountNumber)
}

// ErrInsufficientBalance indicates not enough balance for the operation.
type ErrInsufficientBalance struct {
	AccountNumber string
	Available     decimal.Decimal
	Required      decimal.Decimal
}

func (e *ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance on %s: available=%s required=%s",
		e.AccountNumber, e.Available.StringFixed(2), e.Required.StringFixed(2))
}

// ErrSameAccountTransfer indicates a transfer whose source and destination match.
type ErrSameAccountTransfer struct {
	AccountNumber string
}

func (e *ErrSameAccountTransfer) Error() string {
	return fmt.Sprintf("cannot transfer from %s to itself", e.AccountNumber)
}

// ErrInvalidAmount indicates a non-positive amount.
type ErrInvalidAmount struct {
	Amount decimal.Decimal
}

func (e *ErrInvalidAmount) Error() string {
	return fmt.Sprintf("invalid amount %s: must be greater than zero", e.Amount.String())
}

// ErrDuplicateAccount indicates an account number is already taken.
// Numbers are generated sequentially, so this is an internal defect.
type ErrDuplicateAccount struct {
	AccountNumber string
}

func (e *ErrDuplicateAccount) Error() string {
	return fmt.Sprintf("duplicate account number: %s", e.AccountNumber)
}

// ErrInvalidAccountType indicates an account type other than SAVINGS or CURRENT.
type ErrInvalidAccountType struct {
	AccountType string
}

func (e *ErrInvalidAccountType) Error() string {
	return fmt.Sprintf("invalid account type %q: expected %s or %s",
		e.AccountType, AccountTypeSavings, AccountTypeCurrent)
}
