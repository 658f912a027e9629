package ledger

import (
	"time"

	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
)

// AllUsers selects events across every user (shared-pool aggregation).
const AllUsers int64 = 0

// inPeriod reports whether ts falls within [start, end).
func inPeriod(ts, start, end time.Time) bool {
	return !ts.Before(start) && ts.Before(end)
}

// SumQuantity sums quantities of events matching userID (AllUsers for
// no user filter) and kind within [start, end). Pure and
// order-invariant.
func SumQuantity(events []Event, userID int64, kind resource.Kind, start, end time.Time) int64 {
	var total int64
	for _, e := range events {
		if userID != AllUsers && e.UserID != userID {
			continue
		}
		if e.Kind != kind || !inPeriod(e.Timestamp, start, end) {
			continue
		}
		total += e.Quantity
	}
	return total
}

// SumCost sums denormalized costs across both resource kinds for events
// matching userID (AllUsers for no user filter) within [start, end).
func SumCost(events []Event, userID int64, start, end time.Time) money.Amount {
	var total money.Amount
	for _, e := range events {
		if userID != AllUsers && e.UserID != userID {
			continue
		}
		if !inPeriod(e.Timestamp, start, end) {
			continue
		}
		total += e.Cost
	}
	return total
}
