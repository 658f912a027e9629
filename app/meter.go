// Package app provides application services that orchestrate domain
// logic with storage and external providers.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/artpar/voxmeter/adapters/metrics"
	"github.com/artpar/voxmeter/domain/eligibility"
	"github.com/artpar/voxmeter/domain/ledger"
	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
	"github.com/artpar/voxmeter/domain/window"
	"github.com/artpar/voxmeter/ports"
	"github.com/rs/zerolog"
)

// MeterService is the usage accounting and eligibility engine. It
// answers "may this user consume more of resource X right now", records
// consumption events, and reports usage.
//
// The check-then-act sequence across CheckEligibility and RecordUsage
// is deliberately not atomic: two concurrent requests can both pass a
// check before either appends its event, allowing bounded overshoot of
// a soft quota.
type MeterService struct {
	users   ports.UserStore
	windows ports.WindowStore
	ledger  ports.LedgerStore
	clock   ports.Clock
	idGen   ports.IDGenerator
	logger  zerolog.Logger
	metrics *metrics.Collector

	mode  eligibility.Mode
	rates money.RateTable

	// Reloadable settings, guarded by mu.
	mu       sync.RWMutex
	vips     map[int64]bool
	failOpen bool
}

// MeterDeps contains dependencies for MeterService.
type MeterDeps struct {
	Users   ports.UserStore
	Windows ports.WindowStore
	Ledger  ports.LedgerStore
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  zerolog.Logger
	Metrics *metrics.Collector // optional
}

// MeterConfig contains configuration for MeterService. Mode is fixed
// for the lifetime of the deployment; quantity and cost accounting are
// never mixed per call.
type MeterConfig struct {
	Mode     eligibility.Mode
	Rates    money.RateTable
	VIPs     []int64
	FailOpen bool // on storage failure at check time: allow with warning instead of denying
}

// NewMeterService creates a new meter service.
func NewMeterService(deps MeterDeps, cfg MeterConfig) (*MeterService, error) {
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("invalid quota mode %q", cfg.Mode)
	}
	vips := make(map[int64]bool, len(cfg.VIPs))
	for _, id := range cfg.VIPs {
		vips[id] = true
	}
	return &MeterService{
		users:    deps.Users,
		windows:  deps.Windows,
		ledger:   deps.Ledger,
		clock:    deps.Clock,
		idGen:    deps.IDGen,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		mode:     cfg.Mode,
		rates:    cfg.Rates,
		vips:     vips,
		failOpen: cfg.FailOpen,
	}, nil
}

// Mode returns the configured accounting mode.
func (s *MeterService) Mode() eligibility.Mode {
	return s.mode
}

// UpdateSettings applies the reloadable quota settings: the VIP
// allow-list and the storage fail-open policy. The accounting mode and
// rate table are fixed for the process lifetime; changing them requires
// a restart.
func (s *MeterService) UpdateSettings(vips []int64, failOpen bool) {
	m := make(map[int64]bool, len(vips))
	for _, id := range vips {
		m[id] = true
	}
	s.mu.Lock()
	s.vips = m
	s.failOpen = failOpen
	s.mu.Unlock()
	s.logger.Info().Int("vips", len(vips)).Bool("fail_open", failOpen).
		Msg("quota settings updated")
}

func (s *MeterService) isVIP(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vips[id]
}

func (s *MeterService) failsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failOpen
}

// CheckEligibility decides whether userID may consume more of kind.
// Denial is a normal decision, never an error. A non-nil error means a
// storage fault; the returned decision then carries the configured
// fail-open or fail-closed fallback and the caller should show a
// generic transient-failure message, never the raw error.
func (s *MeterService) CheckEligibility(ctx context.Context, userID int64, kind resource.Kind) (eligibility.Decision, error) {
	if !kind.Valid() {
		return eligibility.Decision{}, fmt.Errorf("unknown resource kind %q", kind)
	}
	now := s.clock.Now()
	if s.metrics != nil {
		started := time.Now()
		defer func() {
			s.metrics.CheckDuration.Observe(time.Since(started).Seconds())
		}()
	}

	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, ports.ErrNotFound) {
		return s.observe(kind, eligibility.Denied(eligibility.NotRegistered)), nil
	}
	if err != nil {
		return s.storageFault(kind, "get_user", err)
	}

	if u.VIP || s.isVIP(userID) {
		return s.observe(kind, eligibility.Bypass()), nil
	}

	w, ok, err := s.resolve(ctx, userID, now)
	if err != nil {
		return s.storageFault(kind, "resolve_window", err)
	}
	if !ok {
		return s.observe(kind, eligibility.Denied(eligibility.WindowExpired)), nil
	}

	start, end := w.ActivePeriodFor(now)
	scope := userID
	if w.Shared() {
		scope = ledger.AllUsers
	}

	var d eligibility.Decision
	switch s.mode {
	case eligibility.ModeCost:
		used, err := s.ledger.SumCost(ctx, scope, start, end)
		if err != nil {
			return s.storageFault(kind, "sum_cost", err)
		}
		d = eligibility.EvaluateCost(w, used, now)
	default:
		used, err := s.ledger.SumQuantity(ctx, scope, kind, start, end)
		if err != nil {
			return s.storageFault(kind, "sum_quantity", err)
		}
		d = eligibility.EvaluateQuantity(w, kind, used, now)
	}
	return s.observe(kind, d), nil
}

// resolve determines the single governing quota window for a user:
// active subscription, else active free trial, else the global shared
// pool. Windows are never combined. The pool carries only a monetary
// budget, so it is a candidate in cost mode only; in quantity mode it
// could never bound usage.
func (s *MeterService) resolve(ctx context.Context, userID int64, now time.Time) (window.Window, bool, error) {
	candidates, err := s.windows.ListByUser(ctx, userID)
	if err != nil {
		return window.Window{}, false, fmt.Errorf("list windows: %w", err)
	}

	if s.mode == eligibility.ModeCost {
		pool, err := s.windows.SharedPool(ctx)
		switch {
		case err == nil:
			candidates = append(candidates, pool)
		case errors.Is(err, ports.ErrNotFound):
			// No shared pool configured.
		default:
			return window.Window{}, false, fmt.Errorf("shared pool: %w", err)
		}
	}

	w, ok := window.Pick(candidates, now)
	return w, ok, nil
}

// RecordUsage appends one consumption event to the ledger, deriving the
// monetary cost from the rate table at write time. Called after the
// metered action completed; append failure must not roll the action
// back, so callers log the returned error and continue.
func (s *MeterService) RecordUsage(ctx context.Context, userID int64, kind resource.Kind, quantity int64) (string, error) {
	cost, err := s.rates.Cost(kind, quantity)
	if err != nil {
		return "", fmt.Errorf("compute cost: %w", err)
	}

	e, err := ledger.New(s.idGen.New(), userID, kind, quantity, cost, s.clock.Now())
	if err != nil {
		return "", fmt.Errorf("build usage event: %w", err)
	}

	if err := s.ledger.Append(ctx, e); err != nil {
		if s.metrics != nil {
			s.metrics.StorageErrors.WithLabelValues("append").Inc()
		}
		return "", fmt.Errorf("append usage event: %w", err)
	}

	if s.metrics != nil {
		s.metrics.EventsTotal.WithLabelValues(string(kind)).Inc()
		s.metrics.QuantityTotal.WithLabelValues(string(kind)).Add(float64(quantity))
		s.metrics.CostMicros.Add(float64(cost.Micros()))
	}
	s.logger.Debug().
		Int64("user_id", userID).
		Str("resource", string(kind)).
		Int64("quantity", quantity).
		Str("cost", cost.String()).
		Msg("usage recorded")
	return e.ID, nil
}

// ResourceUsage reports one resource's standing within the governing
// window.
type ResourceUsage struct {
	Kind  resource.Kind `json:"resource"`
	Used  int64         `json:"used"`
	Limit int64         `json:"limit"`
}

// UsageSummary is the user-facing usage report: per-resource used and
// limit figures plus the governing window, and monetary figures in cost
// mode.
type UsageSummary struct {
	UserID     int64           `json:"user_id"`
	Active     bool            `json:"active"`
	WindowKind window.Kind     `json:"window_kind,omitempty"`
	WindowEnd  *time.Time      `json:"window_end,omitempty"`
	Resources  []ResourceUsage `json:"resources"`
	CostUsed   money.Amount    `json:"cost_used_micros,omitempty"`
	CostLimit  money.Amount    `json:"cost_limit_micros,omitempty"`
}

// GetUsageSummary reports current usage against the governing window
// for each resource kind. Totals are recomputed from the ledger on
// every call; nothing is cached.
func (s *MeterService) GetUsageSummary(ctx context.Context, userID int64) (UsageSummary, error) {
	now := s.clock.Now()

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return UsageSummary{}, fmt.Errorf("get user: %w", err)
	}

	summary := UsageSummary{UserID: userID}

	var w window.Window
	if u.VIP || s.isVIP(userID) {
		// VIPs have no governing window; report this month's usage
		// against unlimited limits.
		w = window.Bypass(userID, now)
		w.Start, w.End = window.MonthBounds(now)
		summary.Active = true
		summary.WindowKind = window.VIPBypass
	} else {
		var ok bool
		w, ok, err = s.resolve(ctx, userID, now)
		if err != nil {
			return UsageSummary{}, err
		}
		if !ok {
			summary.Resources = make([]ResourceUsage, 0, len(resource.Kinds()))
			for _, kind := range resource.Kinds() {
				summary.Resources = append(summary.Resources, ResourceUsage{Kind: kind})
			}
			return summary, nil
		}
		summary.Active = true
		summary.WindowKind = w.Kind
		if !w.OpenEnded() {
			end := w.End
			summary.WindowEnd = &end
		}
	}

	start, end := w.ActivePeriodFor(now)
	scope := userID
	if w.Shared() {
		scope = ledger.AllUsers
	}

	for _, kind := range resource.Kinds() {
		used, err := s.ledger.SumQuantity(ctx, scope, kind, start, end)
		if err != nil {
			return UsageSummary{}, fmt.Errorf("sum %s: %w", kind, err)
		}
		summary.Resources = append(summary.Resources, ResourceUsage{
			Kind:  kind,
			Used:  used,
			Limit: w.LimitFor(kind),
		})
	}

	if s.mode == eligibility.ModeCost {
		used, err := s.ledger.SumCost(ctx, scope, start, end)
		if err != nil {
			return UsageSummary{}, fmt.Errorf("sum cost: %w", err)
		}
		summary.CostUsed = used
		summary.CostLimit = w.CostLimit
	}

	return summary, nil
}

// observe counts a decision in metrics and returns it unchanged.
func (s *MeterService) observe(kind resource.Kind, d eligibility.Decision) eligibility.Decision {
	if s.metrics != nil {
		s.metrics.ChecksTotal.WithLabelValues(string(kind), string(d.Reason)).Inc()
	}
	return d
}

// storageFault applies the configured fallback policy for a storage
// failure during a check and returns the wrapped error alongside it.
func (s *MeterService) storageFault(kind resource.Kind, op string, err error) (eligibility.Decision, error) {
	if s.metrics != nil {
		s.metrics.StorageErrors.WithLabelValues(op).Inc()
	}
	failOpen := s.failsOpen()
	s.logger.Error().Err(err).Str("operation", op).Bool("fail_open", failOpen).
		Msg("storage failure during eligibility check")

	d := eligibility.Decision{Eligible: failOpen}
	if failOpen {
		d.Reason = eligibility.ActiveWithinLimit
	} else {
		d.Reason = eligibility.WindowExpired
	}
	return s.observe(kind, d), fmt.Errorf("eligibility check %s: %w", op, err)
}
