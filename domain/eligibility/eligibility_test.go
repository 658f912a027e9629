package eligibility

import (
	"strings"
	"testing"
	"time"

	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
	"github.com/artpar/voxmeter/domain/window"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func trialWindow() window.Window {
	return window.Window{
		Kind:            window.FreeTrial,
		Start:           date(2024, time.January, 1),
		End:             date(2024, time.January, 8),
		TTSLimitChars:   10_000,
		STTLimitSeconds: 3_600,
		CostLimit:       money.Unlimited,
	}
}

// -----------------------------------------------------------------------------
// Quantity mode
// -----------------------------------------------------------------------------

func TestEvaluateQuantity_WithinLimit(t *testing.T) {
	d := EvaluateQuantity(trialWindow(), resource.TTSChars, 9_999, date(2024, time.January, 4))

	if !d.Eligible {
		t.Fatal("expected eligible at 9999 of 10000")
	}
	if d.Reason != ActiveWithinLimit {
		t.Errorf("reason = %q, want active_within_limit", d.Reason)
	}
	if d.Used != 9_999 || d.Limit != 10_000 {
		t.Errorf("figures = %d/%d, want 9999/10000", d.Used, d.Limit)
	}
	if d.WindowKind != window.FreeTrial {
		t.Errorf("window kind = %q, want free_trial", d.WindowKind)
	}
}

func TestEvaluateQuantity_AtLimitDenies(t *testing.T) {
	// Usage equal to the limit means the ceiling has been reached.
	d := EvaluateQuantity(trialWindow(), resource.TTSChars, 10_000, date(2024, time.January, 4))

	if d.Eligible {
		t.Fatal("expected denial at exactly the limit")
	}
	if d.Reason != LimitExceeded {
		t.Errorf("reason = %q, want limit_exceeded", d.Reason)
	}
}

func TestEvaluateQuantity_OverLimitDenies(t *testing.T) {
	d := EvaluateQuantity(trialWindow(), resource.TTSChars, 10_001, date(2024, time.January, 4))
	if d.Eligible || d.Reason != LimitExceeded {
		t.Errorf("decision = %+v, want limit_exceeded denial", d)
	}
}

func TestEvaluateQuantity_ExpiredWindow(t *testing.T) {
	// Day 8 of a 7-day trial. Expiry is checked before the limit, so an
	// expired window denies even with zero usage.
	d := EvaluateQuantity(trialWindow(), resource.TTSChars, 0, date(2024, time.January, 8))

	if d.Eligible {
		t.Fatal("expected denial after window end")
	}
	if d.Reason != WindowExpired {
		t.Errorf("reason = %q, want window_expired", d.Reason)
	}
}

func TestEvaluateQuantity_NoLimit(t *testing.T) {
	w := trialWindow()
	w.TTSLimitChars = window.NoLimit

	d := EvaluateQuantity(w, resource.TTSChars, 1_000_000, date(2024, time.January, 4))
	if !d.Eligible {
		t.Error("expected eligible with unlimited quantity")
	}
}

func TestEvaluateQuantity_PerResourceIndependence(t *testing.T) {
	w := trialWindow()

	// Exhausting TTS chars must not affect the STT verdict.
	tts := EvaluateQuantity(w, resource.TTSChars, 10_000, date(2024, time.January, 4))
	stt := EvaluateQuantity(w, resource.STTSeconds, 100, date(2024, time.January, 4))

	if tts.Eligible {
		t.Error("TTS should be denied")
	}
	if !stt.Eligible {
		t.Error("STT should remain eligible")
	}
}

// -----------------------------------------------------------------------------
// Cost mode
// -----------------------------------------------------------------------------

func TestEvaluateCost(t *testing.T) {
	pool := window.Window{
		Kind:      window.SharedPool,
		Start:     date(2024, time.January, 1),
		CostLimit: money.FromCents(300), // $3 monthly budget
	}
	now := date(2024, time.January, 15)

	d := EvaluateCost(pool, money.FromCents(299), now)
	if !d.Eligible {
		t.Error("expected eligible under the budget")
	}

	d = EvaluateCost(pool, money.FromCents(300), now)
	if d.Eligible || d.Reason != LimitExceeded {
		t.Errorf("decision = %+v, want limit_exceeded at the budget", d)
	}

	pool.CostLimit = money.Unlimited
	d = EvaluateCost(pool, money.FromDollars(1_000), now)
	if !d.Eligible {
		t.Error("expected eligible with unlimited budget")
	}
}

func TestEvaluateCost_ExpiredWindow(t *testing.T) {
	w := window.Window{
		Kind:      window.Subscription,
		Start:     date(2024, time.January, 1),
		End:       date(2024, time.February, 1),
		CostLimit: money.FromDollars(5),
	}
	d := EvaluateCost(w, 0, date(2024, time.February, 1))
	if d.Eligible || d.Reason != WindowExpired {
		t.Errorf("decision = %+v, want window_expired", d)
	}
}

// -----------------------------------------------------------------------------
// Constructors and status text
// -----------------------------------------------------------------------------

func TestBypass(t *testing.T) {
	d := Bypass()
	if !d.Eligible || d.Reason != VIPOverride {
		t.Errorf("Bypass() = %+v", d)
	}
}

func TestDenied(t *testing.T) {
	d := Denied(NotRegistered)
	if d.Eligible || d.Reason != NotRegistered {
		t.Errorf("Denied() = %+v", d)
	}
}

func TestStatus(t *testing.T) {
	cases := []struct {
		d    Decision
		want string
	}{
		{Bypass(), "unlimited access"},
		{Denied(NotRegistered), "not registered"},
		{Denied(WindowExpired), "no active trial"},
		{
			Decision{Reason: LimitExceeded, Used: 10_000, Limit: 10_000},
			"10000 of 10000",
		},
		{
			Decision{Reason: ActiveWithinLimit, WindowKind: window.FreeTrial, Used: 5, Limit: 10},
			"free_trial active (5 of 10",
		},
	}
	for _, c := range cases {
		if got := c.d.Status(); !strings.Contains(got, c.want) {
			t.Errorf("Status() = %q, want it to contain %q", got, c.want)
		}
	}
}

func TestStatus_CostMode(t *testing.T) {
	// An active window with an unlimited cost budget shows no figures at
	// all, not a zero-quantity line.
	d := Decision{
		Eligible:   true,
		Reason:     ActiveWithinLimit,
		WindowKind: window.FreeTrial,
		CostLimit:  money.Unlimited,
	}
	if got := d.Status(); got != "free_trial active" {
		t.Errorf("Status() = %q, want %q", got, "free_trial active")
	}

	// A cost-mode denial reports money, not quantities.
	d = Decision{
		Reason:    LimitExceeded,
		CostUsed:  money.FromCents(300),
		CostLimit: money.FromCents(300),
	}
	if got := d.Status(); !strings.Contains(got, "$3.000000") {
		t.Errorf("Status() = %q, want monetary figures", got)
	}
}

func TestMode_Valid(t *testing.T) {
	if !ModeQuantity.Valid() || !ModeCost.Valid() {
		t.Error("known modes must validate")
	}
	if Mode("bananas").Valid() {
		t.Error("unknown mode must not validate")
	}
}
