package sqlite

import (
	"context"
	"time"

	"github.com/artpar/voxmeter/domain/ledger"
	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
	"github.com/artpar/voxmeter/ports"
)

// LedgerStore implements ports.LedgerStore using SQLite. Reads are
// single aggregate queries recomputed per call; nothing is cached, so
// decisions always see the freshest totals.
type LedgerStore struct {
	db *DB
}

// NewLedgerStore creates a new SQLite ledger store.
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Append stores one usage event. The ledger is append-only: no update
// or delete path exists.
func (s *LedgerStore) Append(ctx context.Context, e ledger.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_events (id, user_id, resource, quantity, cost_micros, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, string(e.Kind), e.Quantity, int64(e.Cost), formatTime(e.Timestamp))
	return err
}

// SumQuantity sums event quantities for a resource kind within
// [start, end). userID ledger.AllUsers drops the user filter
// (shared-pool aggregation).
func (s *LedgerStore) SumQuantity(ctx context.Context, userID int64, kind resource.Kind, start, end time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0) FROM usage_events
		WHERE resource = ? AND timestamp >= ? AND timestamp < ?
	`
	args := []any{string(kind), formatTime(start), formatTime(end)}
	if userID != ledger.AllUsers {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	var total int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}

// SumCost sums denormalized event costs across both resource kinds
// within [start, end).
func (s *LedgerStore) SumCost(ctx context.Context, userID int64, start, end time.Time) (money.Amount, error) {
	query := `
		SELECT COALESCE(SUM(cost_micros), 0) FROM usage_events
		WHERE timestamp >= ? AND timestamp < ?
	`
	args := []any{formatTime(start), formatTime(end)}
	if userID != ledger.AllUsers {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	var total int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&total)
	return money.Amount(total), err
}

// Recent returns the most recent events for a user.
func (s *LedgerStore) Recent(ctx context.Context, userID int64, limit int) ([]ledger.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, resource, quantity, cost_micros, timestamp
		FROM usage_events WHERE user_id = ?
		ORDER BY timestamp DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ledger.Event
	for rows.Next() {
		var e ledger.Event
		var kind, ts string
		var costMicros int64
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Quantity, &costMicros, &ts); err != nil {
			return nil, err
		}
		e.Kind = resource.Kind(kind)
		e.Cost = money.Amount(costMicros)
		e.Timestamp = parseTime(ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Ensure interface compliance.
var _ ports.LedgerStore = (*LedgerStore)(nil)
