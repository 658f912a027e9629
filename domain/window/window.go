// Package window models quota windows: time-bounded allowances of
// resource consumption. All functions are pure.
package window

import (
	"time"

	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
)

// Kind tags the quota window variant. Each variant carries its own
// reset semantics (see ActivePeriodFor).
type Kind string

const (
	// FreeTrial is a fixed-span allowance granted at registration.
	// Usage never resets within the span.
	FreeTrial Kind = "free_trial"
	// Subscription is a paid allowance whose usage resets each
	// calendar month even when the window spans many months.
	Subscription Kind = "subscription"
	// SharedPool is a global monthly budget consumed collectively by
	// all users. It belongs to no user.
	SharedPool Kind = "shared_pool"
	// VIPBypass is a synthetic unlimited window for allow-listed users.
	// It is never persisted.
	VIPBypass Kind = "vip"
)

// NoLimit marks an unlimited per-resource quantity.
const NoLimit int64 = -1

// Window is a quota window (value type, immutable once created except
// for end extension on renewal).
type Window struct {
	ID     string
	UserID int64 // 0 for the shared pool
	Kind   Kind
	Start  time.Time
	End    time.Time // zero = open-ended

	TTSLimitChars   int64        // NoLimit = unlimited
	STTLimitSeconds int64        // NoLimit = unlimited
	CostLimit       money.Amount // money.Unlimited = unlimited

	CreatedAt time.Time
}

// Shared reports whether the window is the global shared pool.
func (w Window) Shared() bool {
	return w.Kind == SharedPool
}

// OpenEnded reports whether the window has no end date.
func (w Window) OpenEnded() bool {
	return w.End.IsZero()
}

// Contains reports whether t falls within [Start, End), treating a zero
// End as open-ended.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	return w.OpenEnded() || t.Before(w.End)
}

// Expired reports whether the window has ended strictly before now.
func (w Window) Expired(now time.Time) bool {
	return !w.OpenEnded() && !w.End.After(now)
}

// LimitFor returns the quantity limit for a resource kind.
func (w Window) LimitFor(kind resource.Kind) int64 {
	switch kind {
	case resource.TTSChars:
		return w.TTSLimitChars
	case resource.STTSeconds:
		return w.STTLimitSeconds
	default:
		return 0
	}
}

// ActivePeriodFor returns the [start, end) period over which usage is
// aggregated for a check at time now. Subscriptions and the shared pool
// reset each calendar month, so their period is the current month
// clipped to the window bounds. Free trials never reset: the period is
// the full window span.
func (w Window) ActivePeriodFor(now time.Time) (start, end time.Time) {
	switch w.Kind {
	case Subscription, SharedPool:
		monthStart, monthEnd := MonthBounds(now)
		start = monthStart
		if w.Start.After(start) {
			start = w.Start
		}
		end = monthEnd
		if !w.OpenEnded() && w.End.Before(end) {
			end = w.End
		}
		return start, end
	default:
		end = w.End
		if w.OpenEnded() {
			// Open-ended windows aggregate everything up to now.
			end = now
		}
		return w.Start, end
	}
}

// MonthBounds returns the [start, end) bounds of the calendar month
// containing t.
func MonthBounds(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 1, 0)
	return start, end
}

// Bypass returns a synthetic unlimited window for an allow-listed user.
func Bypass(userID int64, now time.Time) Window {
	return Window{
		UserID:          userID,
		Kind:            VIPBypass,
		Start:           now,
		TTSLimitChars:   NoLimit,
		STTLimitSeconds: NoLimit,
		CostLimit:       money.Unlimited,
	}
}

// precedence orders window kinds for resolution; lower wins.
var precedence = map[Kind]int{
	Subscription: 0,
	FreeTrial:    1,
	SharedPool:   2,
}

// Pick selects the single governing window from candidates: the
// highest-precedence window that contains now (subscription over free
// trial over shared pool). Windows are never combined; a user mid-trial
// who also holds a subscription is governed by the subscription alone.
func Pick(candidates []Window, now time.Time) (Window, bool) {
	best := Window{}
	bestRank := len(precedence) + 1
	found := false
	for _, w := range candidates {
		rank, ok := precedence[w.Kind]
		if !ok || !w.Contains(now) {
			continue
		}
		if !found || rank < bestRank {
			best = w
			bestRank = rank
			found = true
		}
	}
	return best, found
}
