package sqlite

import (
	"context"
	"database/sql"

	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/ports"
)

// PaymentStore implements ports.PaymentStore using SQLite.
type PaymentStore struct {
	db *DB
}

// NewPaymentStore creates a new SQLite payment store.
func NewPaymentStore(db *DB) *PaymentStore {
	return &PaymentStore{db: db}
}

// Record stores a payment.
func (s *PaymentStore) Record(ctx context.Context, p ports.Payment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, user_id, window_id, amount_micros, method, paid_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.UserID, p.WindowID, int64(p.Amount), p.Method, formatTime(p.PaidAt))
	return err
}

// ListByUser returns payments for a user, newest first.
func (s *PaymentStore) ListByUser(ctx context.Context, userID int64, limit int) ([]ports.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, window_id, amount_micros, method, paid_at
		FROM payments WHERE user_id = ?
		ORDER BY paid_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []ports.Payment
	for rows.Next() {
		var p ports.Payment
		var amount int64
		var method sql.NullString
		var paidAt string
		if err := rows.Scan(&p.ID, &p.UserID, &p.WindowID, &amount, &method, &paidAt); err != nil {
			return nil, err
		}
		p.Amount = money.Amount(amount)
		p.Method = method.String
		p.PaidAt = parseTime(paidAt)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Ensure interface compliance.
var _ ports.PaymentStore = (*PaymentStore)(nil)
