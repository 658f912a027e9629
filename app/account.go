package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/user"
	"github.com/artpar/voxmeter/domain/window"
	"github.com/artpar/voxmeter/ports"
	"github.com/rs/zerolog"
)

// AccountService manages registration, subscriptions, and the shared
// pool.
type AccountService struct {
	users    ports.UserStore
	windows  ports.WindowStore
	payments ports.PaymentStore
	clock    ports.Clock
	idGen    ports.IDGenerator
	logger   zerolog.Logger

	// Reloadable settings, guarded by mu.
	mu              sync.RWMutex
	trialDays       int
	trialTTSChars   int64
	trialSTTSeconds int64
	vips            map[int64]bool
}

// AccountDeps contains dependencies for AccountService.
type AccountDeps struct {
	Users    ports.UserStore
	Windows  ports.WindowStore
	Payments ports.PaymentStore
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   zerolog.Logger
}

// AccountConfig contains configuration for AccountService.
type AccountConfig struct {
	TrialDays       int
	TrialTTSChars   int64
	TrialSTTSeconds int64
	VIPs            []int64
}

// NewAccountService creates a new account service.
func NewAccountService(deps AccountDeps, cfg AccountConfig) (*AccountService, error) {
	if cfg.TrialDays <= 0 {
		return nil, fmt.Errorf("trial days must be positive, got %d", cfg.TrialDays)
	}
	vips := make(map[int64]bool, len(cfg.VIPs))
	for _, id := range cfg.VIPs {
		vips[id] = true
	}
	return &AccountService{
		users:           deps.Users,
		windows:         deps.Windows,
		payments:        deps.Payments,
		clock:           deps.Clock,
		idGen:           deps.IDGen,
		logger:          deps.Logger,
		trialDays:       cfg.TrialDays,
		trialTTSChars:   cfg.TrialTTSChars,
		trialSTTSeconds: cfg.TrialSTTSeconds,
		vips:            vips,
	}, nil
}

// UpdateSettings applies the reloadable account settings: trial grant
// parameters and the VIP allow-list. Invalid settings are rejected and
// the previous values kept.
func (s *AccountService) UpdateSettings(cfg AccountConfig) error {
	if cfg.TrialDays <= 0 {
		return fmt.Errorf("trial days must be positive, got %d", cfg.TrialDays)
	}
	vips := make(map[int64]bool, len(cfg.VIPs))
	for _, id := range cfg.VIPs {
		vips[id] = true
	}
	s.mu.Lock()
	s.trialDays = cfg.TrialDays
	s.trialTTSChars = cfg.TrialTTSChars
	s.trialSTTSeconds = cfg.TrialSTTSeconds
	s.vips = vips
	s.mu.Unlock()
	s.logger.Info().Int("trial_days", cfg.TrialDays).Int("vips", len(cfg.VIPs)).
		Msg("account settings updated")
	return nil
}

// Register creates a user together with their free-trial window. Both
// writes are atomic: a failed registration leaves nothing behind.
// Returns ports.ErrExists if the user is already registered.
func (s *AccountService) Register(ctx context.Context, id int64, firstName, lastName, username string) (user.User, error) {
	now := s.clock.Now()

	s.mu.RLock()
	trialDays := s.trialDays
	ttsChars := s.trialTTSChars
	sttSeconds := s.trialSTTSeconds
	vip := s.vips[id]
	s.mu.RUnlock()

	u := user.User{
		ID:        id,
		FirstName: firstName,
		LastName:  lastName,
		Username:  username,
		VIP:       vip,
		CreatedAt: now,
	}
	trial := window.Window{
		ID:              s.idGen.New(),
		UserID:          id,
		Kind:            window.FreeTrial,
		Start:           now,
		End:             now.AddDate(0, 0, trialDays),
		TTSLimitChars:   ttsChars,
		STTLimitSeconds: sttSeconds,
		CostLimit:       money.Unlimited,
		CreatedAt:       now,
	}

	if err := s.users.Register(ctx, u, trial); err != nil {
		return user.User{}, err
	}

	s.logger.Info().
		Int64("user_id", id).
		Str("username", username).
		Bool("vip", u.VIP).
		Time("trial_end", trial.End).
		Msg("user registered")
	return u, nil
}

// SubscriptionSpec describes a subscription window to create on payment
// confirmation.
type SubscriptionSpec struct {
	Start           time.Time
	End             time.Time // zero = open-ended
	TTSLimitChars   int64     // monthly; window.NoLimit = unlimited
	STTLimitSeconds int64     // monthly; window.NoLimit = unlimited
	CostLimit       money.Amount
	Amount          money.Amount // payment amount
	Method          string       // payment method label
}

// Subscribe creates a subscription window for a user and records the
// backing payment. A user holds at most one active subscription at any
// instant; an overlapping subscription is rejected.
func (s *AccountService) Subscribe(ctx context.Context, userID int64, spec SubscriptionSpec) (window.Window, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return window.Window{}, fmt.Errorf("get user: %w", err)
	}

	existing, err := s.windows.ListByUser(ctx, userID)
	if err != nil {
		return window.Window{}, fmt.Errorf("list windows: %w", err)
	}
	for _, w := range existing {
		if w.Kind == window.Subscription && overlaps(w, spec.Start, spec.End) {
			return window.Window{}, fmt.Errorf("overlapping subscription %s: %w", w.ID, ports.ErrExists)
		}
	}

	now := s.clock.Now()
	w := window.Window{
		ID:              s.idGen.New(),
		UserID:          userID,
		Kind:            window.Subscription,
		Start:           spec.Start,
		End:             spec.End,
		TTSLimitChars:   spec.TTSLimitChars,
		STTLimitSeconds: spec.STTLimitSeconds,
		CostLimit:       spec.CostLimit,
		CreatedAt:       now,
	}
	if err := s.windows.Create(ctx, w); err != nil {
		return window.Window{}, fmt.Errorf("create subscription: %w", err)
	}

	pay := ports.Payment{
		ID:       s.idGen.New(),
		UserID:   userID,
		WindowID: w.ID,
		Amount:   spec.Amount,
		Method:   spec.Method,
		PaidAt:   now,
	}
	if err := s.payments.Record(ctx, pay); err != nil {
		// The window already exists; payment bookkeeping failure is
		// logged, not rolled back.
		s.logger.Error().Err(err).Int64("user_id", userID).Str("window_id", w.ID).
			Msg("payment record failed")
	}

	s.logger.Info().Int64("user_id", userID).Str("window_id", w.ID).
		Str("amount", spec.Amount.String()).Msg("subscription created")
	return w, nil
}

// Renew extends a subscription window's end date. The only mutation a
// window permits.
func (s *AccountService) Renew(ctx context.Context, windowID string, end time.Time) error {
	return s.windows.ExtendEnd(ctx, windowID, end)
}

// EnsureSharedPool creates the global shared-pool window with the given
// monthly monetary budget if none exists yet, and returns it.
func (s *AccountService) EnsureSharedPool(ctx context.Context, budget money.Amount) (window.Window, error) {
	pool, err := s.windows.SharedPool(ctx)
	if err == nil {
		return pool, nil
	}

	now := s.clock.Now()
	start, _ := window.MonthBounds(now)
	pool = window.Window{
		ID:              s.idGen.New(),
		Kind:            window.SharedPool,
		Start:           start,
		TTSLimitChars:   window.NoLimit,
		STTLimitSeconds: window.NoLimit,
		CostLimit:       budget,
		CreatedAt:       now,
	}
	if err := s.windows.Create(ctx, pool); err != nil {
		return window.Window{}, fmt.Errorf("create shared pool: %w", err)
	}
	s.logger.Info().Str("budget", budget.String()).Msg("shared pool created")
	return pool, nil
}

// overlaps reports whether window w intersects [start, end), treating
// zero ends as open.
func overlaps(w window.Window, start, end time.Time) bool {
	if !w.OpenEnded() && !w.End.After(start) {
		return false
	}
	if !end.IsZero() && !end.After(w.Start) {
		return false
	}
	return true
}
