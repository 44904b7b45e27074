// Package memory provides in-memory implementations of the storage ports.
// State lives for the lifetime of the process only.
package memory

import (
	"context"
	"sync"

	"github.com/boddenberg/console-bank-go/internal/domain"
)

// AccountStore is a thread-safe in-memory account collection.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	order    []string // insertion order
}

// NewAccountStore creates an empty account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]*domain.Account)}
}

// Create numbers acct as count+1 and inserts it under the write lock, so
// concurrent callers never observe the same count.
func (s *AccountStore) Create(_ context.Context, acct domain.Account) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct.AccountNumber = domain.FormatAccountNumber(len(s.accounts) + 1)
	if err := s.insertLocked(acct); err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}

// Save inserts an account that already carries its number.
func (s *AccountStore) Save(_ context.Context, acct domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(acct)
}

func (s *AccountStore) insertLocked(acct domain.Account) error {
	if _, exists := s.accounts[acct.AccountNumber]; exists {
		return &domain.ErrDuplicateAccount{AccountNumber: acct.AccountNumber}
	}
	stored := acct
	s.accounts[acct.AccountNumber] = &stored
	s.order = append(s.order, acct.AccountNumber)
	return nil
}

// FindByNumber returns a copy of the account, or false if it does not exist.
func (s *AccountStore) FindByNumber(_ context.Context, accountNumber string) (domain.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[accountNumber]
	if !ok {
		return domain.Account{}, false, nil
	}
	return *acct, true, nil
}

// FindAll returns copies of every account in insertion order.
func (s *AccountStore) FindAll(_ context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, 0, len(s.order))
	for _, number := range s.order {
		out = append(out, *s.accounts[number])
	}
	return out, nil
}

// UpdateBalances overwrites the balances of several accounts under one
// write lock. Readers see either none or all of the updates.
func (s *AccountStore) UpdateBalances(_ context.Context, updates ...domain.BalanceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		if _, ok := s.accounts[u.AccountNumber]; !ok {
			return &domain.ErrAccountNotFound{AccountNumber: u.AccountNumber}
		}
	}
	for _, u := range updates {
		s.accounts[u.AccountNumber].Balance = u.Balance
	}
	return nil
}
