package memory

import (
	"context"
	"sync"

	"github.com/boddenberg/console-bank-go/internal/domain"
)

// TransactionLog is a thread-safe append-only list of transactions.
type TransactionLog struct {
	mu           sync.RWMutex
	transactions []domain.Transaction
}

// NewTransactionLog creates an empty transaction log.
func NewTransactionLog() *TransactionLog {
	return &TransactionLog{}
}

// Add appends txs under a single write lock.
func (l *TransactionLog) Add(_ context.Context, txs ...domain.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.transactions = append(l.transactions, txs...)
	return nil
}

// FindByAccount lists an account's transactions in the order they were added.
func (l *TransactionLog) FindByAccount(_ context.Context, accountNumber string) ([]domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Transaction, 0)
	for _, tx := range l.transactions {
		if tx.AccountNumber == accountNumber {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Len returns the number of recorded transactions across all accounts.
func (l *TransactionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.transactions)
}
