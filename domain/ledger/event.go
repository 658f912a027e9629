// Package ledger provides the append-only usage event type and pure
// aggregation helpers. Events are immutable once created.
package ledger

import (
	"fmt"
	"time"

	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
)

// Event is a single metered consumption record (immutable value type).
// Cost is denormalized at write time from the rate table.
type Event struct {
	ID        string
	UserID    int64
	Kind      resource.Kind
	Quantity  int64
	Cost      money.Amount
	Timestamp time.Time
}

// New validates and constructs an event.
func New(id string, userID int64, kind resource.Kind, quantity int64, cost money.Amount, ts time.Time) (Event, error) {
	if !kind.Valid() {
		return Event{}, fmt.Errorf("unknown resource kind %q", kind)
	}
	if quantity < 0 {
		return Event{}, fmt.Errorf("quantity must be non-negative, got %d", quantity)
	}
	return Event{
		ID:        id,
		UserID:    userID,
		Kind:      kind,
		Quantity:  quantity,
		Cost:      cost,
		Timestamp: ts,
	}, nil
}
