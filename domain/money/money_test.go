// Package money tests for amounts and the rate table.
package money

import (
	"testing"

	"github.com/artpar/voxmeter/domain/resource"
)

func testRates() map[resource.Kind]Amount {
	return map[resource.Kind]Amount{
		resource.TTSChars:   15,  // $15 per 1M chars
		resource.STTSeconds: 100, // $0.006 per minute
	}
}

// -----------------------------------------------------------------------------
// Amount tests
// -----------------------------------------------------------------------------

func TestAmount_Conversions(t *testing.T) {
	if got := FromCents(300); got != 3_000_000 {
		t.Errorf("FromCents(300) = %d, want 3000000", got)
	}
	if got := FromDollars(3); got != 3_000_000 {
		t.Errorf("FromDollars(3) = %d, want 3000000", got)
	}
	if got := FromCents(300).Cents(); got != 300 {
		t.Errorf("Cents() = %d, want 300", got)
	}
	if got := Amount(1_500_000).Micros(); got != 1_500_000 {
		t.Errorf("Micros() = %d, want 1500000", got)
	}
}

func TestAmount_String(t *testing.T) {
	cases := []struct {
		amount Amount
		want   string
	}{
		{0, "$0.000000"},
		{1_500_000, "$1.500000"},
		{30, "$0.000030"},
		{-250_000, "-$0.250000"},
	}
	for _, c := range cases {
		if got := c.amount.String(); got != c.want {
			t.Errorf("Amount(%d).String() = %q, want %q", c.amount, got, c.want)
		}
	}
}

// -----------------------------------------------------------------------------
// RateTable tests
// -----------------------------------------------------------------------------

func TestNewRateTable_FoldsMarkup(t *testing.T) {
	table, err := NewRateTable(testRates(), 100)
	if err != nil {
		t.Fatalf("NewRateTable: %v", err)
	}

	// 100% markup doubles the provider rate.
	if got := table.EffectiveRate(resource.TTSChars); got != 30 {
		t.Errorf("effective TTS rate = %d, want 30", got)
	}
	if got := table.EffectiveRate(resource.STTSeconds); got != 200 {
		t.Errorf("effective STT rate = %d, want 200", got)
	}
}

func TestNewRateTable_ZeroMarkup(t *testing.T) {
	table, err := NewRateTable(testRates(), 0)
	if err != nil {
		t.Fatalf("NewRateTable: %v", err)
	}
	if got := table.EffectiveRate(resource.TTSChars); got != 15 {
		t.Errorf("effective TTS rate = %d, want 15", got)
	}
}

func TestNewRateTable_Errors(t *testing.T) {
	if _, err := NewRateTable(testRates(), -1); err == nil {
		t.Error("expected error for negative markup")
	}

	missing := map[resource.Kind]Amount{resource.TTSChars: 15}
	if _, err := NewRateTable(missing, 0); err == nil {
		t.Error("expected error for missing STT rate")
	}

	zero := testRates()
	zero[resource.STTSeconds] = 0
	if _, err := NewRateTable(zero, 0); err == nil {
		t.Error("expected error for zero rate")
	}
}

func TestCost_Linear(t *testing.T) {
	table, err := NewRateTable(testRates(), 100)
	if err != nil {
		t.Fatalf("NewRateTable: %v", err)
	}

	// Per-event costs must sum to exactly the cost of the combined
	// quantity; the ledger stores denormalized per-event costs.
	a, _ := table.Cost(resource.TTSChars, 1_234)
	b, _ := table.Cost(resource.TTSChars, 8_766)
	whole, _ := table.Cost(resource.TTSChars, 10_000)
	if a+b != whole {
		t.Errorf("Cost(1234)+Cost(8766) = %d, want %d", a+b, whole)
	}
	if whole != 300_000 {
		t.Errorf("Cost(10000 chars) = %d micros, want 300000", whole)
	}
}

func TestCost_Errors(t *testing.T) {
	table, err := NewRateTable(testRates(), 0)
	if err != nil {
		t.Fatalf("NewRateTable: %v", err)
	}

	if _, err := table.Cost(resource.Kind("bananas"), 1); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := table.Cost(resource.TTSChars, -1); err == nil {
		t.Error("expected error for negative quantity")
	}
}

func TestCost_ZeroQuantity(t *testing.T) {
	table, err := NewRateTable(testRates(), 100)
	if err != nil {
		t.Fatalf("NewRateTable: %v", err)
	}
	got, err := table.Cost(resource.STTSeconds, 0)
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if got != 0 {
		t.Errorf("Cost(0) = %d, want 0", got)
	}
}
