package memory

import (
	"context"
	"sync"
	"time"

	"github.com/artpar/voxmeter/domain/ledger"
	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
	"github.com/artpar/voxmeter/ports"
)

// LedgerStore is an in-memory implementation of ports.LedgerStore.
type LedgerStore struct {
	mu     sync.RWMutex
	events []ledger.Event

	// failAppend forces Append to fail (for testing the non-fatal
	// write-path behavior).
	failAppend error
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{}
}

// Append stores one usage event.
func (s *LedgerStore) Append(ctx context.Context, e ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAppend != nil {
		return s.failAppend
	}
	s.events = append(s.events, e)
	return nil
}

// SumQuantity sums event quantities within [start, end).
func (s *LedgerStore) SumQuantity(ctx context.Context, userID int64, kind resource.Kind, start, end time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.SumQuantity(s.events, userID, kind, start, end), nil
}

// SumCost sums event costs within [start, end).
func (s *LedgerStore) SumCost(ctx context.Context, userID int64, start, end time.Time) (money.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.SumCost(s.events, userID, start, end), nil
}

// Recent returns the most recent events for a user.
func (s *LedgerStore) Recent(ctx context.Context, userID int64, limit int) ([]ledger.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ledger.Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].UserID == userID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

// FailAppend makes subsequent Append calls return err (for testing).
func (s *LedgerStore) FailAppend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAppend = err
}

// All returns a copy of all events (for testing).
func (s *LedgerStore) All() []ledger.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ledger.Event{}, s.events...)
}

// Ensure interface compliance.
var _ ports.LedgerStore = (*LedgerStore)(nil)
