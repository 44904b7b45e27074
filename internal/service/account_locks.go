package service

import (
	"sort"
	"sync"
)

// accountLocks hands out one mutex per account number so each
// read-modify-write on a balance runs as a single critical section.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *accountLocks) get(accountNumber string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[accountNumber]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountNumber] = m
	}
	return m
}

// lock acquires the locks of all given accounts in ascending account-number
// order, whatever order they were passed in, and returns the release func.
func (l *accountLocks) lock(accountNumbers ...string) (unlock func()) {
	ordered := append([]string(nil), accountNumbers...)
	sort.Strings(ordered)

	held := make([]*sync.Mutex, 0, len(ordered))
	for i, n := range ordered {
		if i > 0 && ordered[i-1] == n {
			continue
		}
		m := l.get(n)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
