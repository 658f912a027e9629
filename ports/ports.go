// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/voxmeter/domain/ledger"
	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
	"github.com/artpar/voxmeter/domain/user"
	"github.com/artpar/voxmeter/domain/window"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrExists is returned by stores on duplicate creation.
var ErrExists = errors.New("already exists")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// UserStore persists user accounts.
type UserStore interface {
	// Get retrieves a user by ID. Returns ErrNotFound if unknown.
	Get(ctx context.Context, id int64) (user.User, error)

	// Register atomically stores a new user together with their
	// initial free-trial window: both writes succeed or neither is
	// visible. Returns ErrExists if the user is already registered.
	Register(ctx context.Context, u user.User, trial window.Window) error

	// List returns users with pagination.
	List(ctx context.Context, limit, offset int) ([]user.User, error)

	// Count returns total user count.
	Count(ctx context.Context) (int, error)
}

// WindowStore persists quota windows.
type WindowStore interface {
	// Create stores a new window.
	Create(ctx context.Context, w window.Window) error

	// ListByUser returns all windows scoped to a user.
	ListByUser(ctx context.Context, userID int64) ([]window.Window, error)

	// SharedPool returns the global shared-pool window.
	// Returns ErrNotFound when no pool is configured.
	SharedPool(ctx context.Context) (window.Window, error)

	// ExtendEnd moves a window's end date forward (renewal). The only
	// permitted mutation of a window.
	ExtendEnd(ctx context.Context, id string, end time.Time) error
}

// LedgerStore persists the append-only usage ledger. Events are never
// updated or deleted. Aggregate reads must execute as a single
// aggregate query and must not be cached: totals change continuously
// under concurrent writers and staleness causes wrong decisions.
type LedgerStore interface {
	// Append stores one usage event.
	Append(ctx context.Context, e ledger.Event) error

	// SumQuantity sums event quantities for a resource kind within
	// [start, end). userID ledger.AllUsers sums across all users.
	SumQuantity(ctx context.Context, userID int64, kind resource.Kind, start, end time.Time) (int64, error)

	// SumCost sums denormalized event costs across both resource kinds
	// within [start, end). userID ledger.AllUsers sums across all users.
	SumCost(ctx context.Context, userID int64, start, end time.Time) (money.Amount, error)

	// Recent returns the most recent events for a user.
	Recent(ctx context.Context, userID int64, limit int) ([]ledger.Event, error)
}

// Payment records a confirmed payment backing a subscription window.
// Bookkeeping only; real payment processing is out of scope.
type Payment struct {
	ID       string
	UserID   int64
	WindowID string
	Amount   money.Amount
	Method   string
	PaidAt   time.Time
}

// PaymentStore persists payment records.
type PaymentStore interface {
	// Record stores a payment.
	Record(ctx context.Context, p Payment) error

	// ListByUser returns payments for a user, newest first.
	ListByUser(ctx context.Context, userID int64, limit int) ([]Payment, error)
}

// -----------------------------------------------------------------------------
// External Service Ports
// -----------------------------------------------------------------------------

// SpeechProvider wraps the synthesis and transcription backends. Both
// calls are opaque capabilities with a measurable cost unit.
type SpeechProvider interface {
	// Synthesize renders text to audio. Cost-relevant quantity is
	// len(text) in characters.
	Synthesize(ctx context.Context, text string) ([]byte, error)

	// Transcribe converts audio to text. Cost-relevant quantity is the
	// audio duration in whole seconds, as reported by the backend.
	Transcribe(ctx context.Context, audio []byte) (text string, seconds int64, err error)
}

// Messenger delivers replies to the conversational transport.
type Messenger interface {
	// DeliverText sends a text reply.
	DeliverText(ctx context.Context, userID int64, text string) error

	// DeliverAudio sends an audio reply.
	DeliverAudio(ctx context.Context, userID int64, audio []byte) error

	// Notify sends a service notification (denials, transient errors).
	Notify(ctx context.Context, userID int64, message string) error
}
