// Package port defines the interfaces (ports) for storage dependencies.
// Following hexagonal architecture, these ports decouple the service
// layer from concrete implementations, so a persistent backing store can
// replace the in-memory one without touching business logic.
package port

import (
	"context"

	"github.com/boddenberg/console-bank-go/internal/domain"
)

// AccountStore holds all accounts and generates account numbers.
// Implementations return copies; mutation goes through UpdateBalances.
type AccountStore interface {
	// Create assigns the next account number to acct and inserts it as one
	// atomic step.
	Create(ctx context.Context, acct domain.Account) (domain.Account, error)
	// Save inserts acct under its own number. Returns
	// *domain.ErrDuplicateAccount if the number is taken.
	Save(ctx context.Context, acct domain.Account) error
	// FindByNumber reports false when no account has that number.
	FindByNumber(ctx context.Context, accountNumber string) (domain.Account, bool, error)
	FindAll(ctx context.Context) ([]domain.Account, error)
	// UpdateBalances applies every update as one step. If any account is
	// missing, nothing changes and *domain.ErrAccountNotFound is returned.
	UpdateBalances(ctx context.Context, updates ...domain.BalanceUpdate) error
}

// TransactionLog is the append-only record of balance changes.
type TransactionLog interface {
	// Add appends all txs as one unit: either every record becomes
	// visible or none does.
	Add(ctx context.Context, txs ...domain.Transaction) error
	// FindByAccount returns an account's transactions in creation order.
	FindByAccount(ctx context.Context, accountNumber string) ([]domain.Transaction, error)
}
