package service

import (
	"sync"
	"testing"
	"time"
)

func TestAccountLocks_DuplicateNumbersDoNotDeadlock(t *testing.T) {
	l := newAccountLocks()

	done := make(chan struct{})
	go func() {
		unlock := l.lock("AC000001", "AC000001")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("locking the same account twice deadlocked")
	}
}

func TestAccountLocks_OppositeOrderDoesNotDeadlock(t *testing.T) {
	l := newAccountLocks()

	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.lock("AC000001", "AC000002")()
		}()
		go func() {
			defer wg.Done()
			l.lock("AC000002", "AC000001")()
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("opposite lock order deadlocked")
	}
}

func TestAccountLocks_Exclusive(t *testing.T) {
	l := newAccountLocks()
	unlock := l.lock("AC000001")

	acquired := make(chan struct{})
	go func() {
		l.lock("AC000001")()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	<-acquired
}
