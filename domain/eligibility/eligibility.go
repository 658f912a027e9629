// Package eligibility provides pure functions answering whether a user
// may consume more of a resource. Denial is a normal return value, not
// an error.
package eligibility

import (
	"fmt"
	"time"

	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
	"github.com/artpar/voxmeter/domain/window"
)

// Reason explains an eligibility decision.
type Reason string

const (
	ActiveWithinLimit Reason = "active_within_limit"
	WindowExpired     Reason = "window_expired"
	LimitExceeded     Reason = "limit_exceeded"
	NotRegistered     Reason = "not_registered"
	VIPOverride       Reason = "vip_override"
)

// Mode selects how limits are compared. One mode is fixed per
// deployment at configuration time; modes are never mixed per call.
type Mode string

const (
	// ModeQuantity compares per-resource quantity usage against the
	// window's per-resource limits.
	ModeQuantity Mode = "quantity"
	// ModeCost aggregates monetary cost across both resource kinds and
	// compares against the window's single money limit.
	ModeCost Mode = "cost"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeQuantity || m == ModeCost
}

// Decision is the allow/deny verdict, computed fresh per request and
// never persisted.
type Decision struct {
	Eligible bool
	Reason   Reason

	// Governing window, if any.
	WindowKind window.Kind
	WindowEnd  time.Time // zero for open-ended or no window

	// Quantity mode figures.
	Used  int64
	Limit int64

	// Cost mode figures.
	CostUsed  money.Amount
	CostLimit money.Amount
}

// Status returns a human-readable status line for the decision.
func (d Decision) Status() string {
	switch d.Reason {
	case VIPOverride:
		return "unlimited access"
	case NotRegistered:
		return "not registered; send /start to register"
	case WindowExpired:
		return "no active trial or subscription"
	case LimitExceeded:
		// A cost-mode decision carries a non-zero CostLimit; quantity
		// decisions leave it zero.
		if d.CostLimit != 0 {
			return fmt.Sprintf("limit reached (%s of %s used)", d.CostUsed, d.CostLimit)
		}
		return fmt.Sprintf("limit reached (%d of %d used)", d.Used, d.Limit)
	case ActiveWithinLimit:
		if d.CostLimit == money.Unlimited || d.Limit == window.NoLimit {
			return fmt.Sprintf("%s active", d.WindowKind)
		}
		if d.CostLimit != 0 {
			return fmt.Sprintf("%s active (%s of %s used)", d.WindowKind, d.CostUsed, d.CostLimit)
		}
		return fmt.Sprintf("%s active (%d of %d used)", d.WindowKind, d.Used, d.Limit)
	default:
		return string(d.Reason)
	}
}

// Denied returns a not-eligible decision with the given reason.
func Denied(reason Reason) Decision {
	return Decision{Eligible: false, Reason: reason}
}

// Bypass returns the unconditional VIP decision.
func Bypass() Decision {
	return Decision{Eligible: true, Reason: VIPOverride, WindowKind: window.VIPBypass}
}

// EvaluateQuantity decides eligibility for one resource kind given the
// governing window and the aggregated quantity used in its active
// period. Usage exactly equal to the limit is treated as exceeded: the
// ceiling has been reached.
func EvaluateQuantity(w window.Window, kind resource.Kind, used int64, now time.Time) Decision {
	d := Decision{
		WindowKind: w.Kind,
		WindowEnd:  w.End,
		Used:       used,
		Limit:      w.LimitFor(kind),
	}
	if w.Expired(now) {
		d.Reason = WindowExpired
		return d
	}
	if d.Limit != window.NoLimit && used >= d.Limit {
		d.Reason = LimitExceeded
		return d
	}
	d.Eligible = true
	d.Reason = ActiveWithinLimit
	return d
}

// EvaluateCost decides eligibility given the governing window and the
// aggregated monetary cost across both resource kinds in its active
// period. Same strict-ceiling tie-break as EvaluateQuantity.
func EvaluateCost(w window.Window, used money.Amount, now time.Time) Decision {
	d := Decision{
		WindowKind: w.Kind,
		WindowEnd:  w.End,
		CostUsed:   used,
		CostLimit:  w.CostLimit,
	}
	if w.Expired(now) {
		d.Reason = WindowExpired
		return d
	}
	if w.CostLimit != money.Unlimited && used >= w.CostLimit {
		d.Reason = LimitExceeded
		return d
	}
	d.Eligible = true
	d.Reason = ActiveWithinLimit
	return d
}
