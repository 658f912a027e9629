// Package money provides fixed-point currency arithmetic and the cost
// rate table. All functions are pure and deterministic.
package money

import (
	"fmt"

	"github.com/artpar/voxmeter/domain/resource"
)

// Amount is a monetary value in integer micro-dollars (1e-6 USD).
// Micro-dollar resolution makes the observed provider rates exact
// integers (15 per TTS character, 100 per STT second), so summing
// per-event costs never drifts.
type Amount int64

// Unlimited marks a missing monetary limit.
const Unlimited Amount = -1

// FromCents converts integer cents to an Amount.
func FromCents(cents int64) Amount {
	return Amount(cents * 10_000)
}

// FromDollars converts whole dollars to an Amount.
func FromDollars(dollars int64) Amount {
	return Amount(dollars * 1_000_000)
}

// Cents returns the amount truncated to integer cents.
func (a Amount) Cents() int64 {
	return int64(a) / 10_000
}

// Micros returns the raw micro-dollar value.
func (a Amount) Micros() int64 {
	return int64(a)
}

// String formats the amount as dollars, e.g. "$1.500000".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%06d", sign, v/1_000_000, v%1_000_000)
}

// RateTable converts raw usage quantities into cost. The per-unit rates
// are provider rates in micro-dollars; the markup percentage is folded
// into an effective integer rate at construction so that
// Cost(q1) + Cost(q2) == Cost(q1+q2) holds exactly.
type RateTable struct {
	effective map[resource.Kind]Amount
}

// NewRateTable builds a rate table from per-unit provider rates and an
// integer markup percentage (100 = 2x the provider rate on top).
// Every metered resource kind must have a positive rate; a missing or
// non-positive entry is a configuration error.
func NewRateTable(rates map[resource.Kind]Amount, markupPct int64) (RateTable, error) {
	if markupPct < 0 {
		return RateTable{}, fmt.Errorf("markup percentage must be non-negative, got %d", markupPct)
	}
	effective := make(map[resource.Kind]Amount, len(rates))
	for _, kind := range resource.Kinds() {
		rate, ok := rates[kind]
		if !ok || rate <= 0 {
			return RateTable{}, fmt.Errorf("missing or invalid rate for resource %q", kind)
		}
		// Round half-up once here; per-event cost stays exactly linear.
		eff := (int64(rate)*(100+markupPct) + 50) / 100
		effective[kind] = Amount(eff)
	}
	return RateTable{effective: effective}, nil
}

// Cost returns the marked-up cost of consuming quantity units of kind.
func (t RateTable) Cost(kind resource.Kind, quantity int64) (Amount, error) {
	rate, ok := t.effective[kind]
	if !ok {
		return 0, fmt.Errorf("no rate for resource %q", kind)
	}
	if quantity < 0 {
		return 0, fmt.Errorf("quantity must be non-negative, got %d", quantity)
	}
	return Amount(quantity) * rate, nil
}

// EffectiveRate returns the marked-up per-unit rate for kind, or zero if
// the kind is unknown.
func (t RateTable) EffectiveRate(kind resource.Kind) Amount {
	return t.effective[kind]
}
