package memory

import (
	"context"
	"sync"

	"github.com/artpar/voxmeter/ports"
)

// PaymentStore is an in-memory implementation of ports.PaymentStore.
type PaymentStore struct {
	mu       sync.RWMutex
	payments []ports.Payment
}

// NewPaymentStore creates a new in-memory payment store.
func NewPaymentStore() *PaymentStore {
	return &PaymentStore{}
}

// Record stores a payment.
func (s *PaymentStore) Record(ctx context.Context, p ports.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, p)
	return nil
}

// ListByUser returns payments for a user, newest first.
func (s *PaymentStore) ListByUser(ctx context.Context, userID int64, limit int) ([]ports.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ports.Payment
	for i := len(s.payments) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.payments[i].UserID == userID {
			out = append(out, s.payments[i])
		}
	}
	return out, nil
}

// Ensure interface compliance.
var _ ports.PaymentStore = (*PaymentStore)(nil)
