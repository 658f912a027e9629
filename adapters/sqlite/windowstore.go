package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/window"
	"github.com/artpar/voxmeter/ports"
)

// WindowStore implements ports.WindowStore using SQLite.
type WindowStore struct {
	db *DB
}

// NewWindowStore creates a new SQLite window store.
func NewWindowStore(db *DB) *WindowStore {
	return &WindowStore{db: db}
}

const windowColumns = `id, user_id, kind, start_at, end_at, tts_limit_chars, stt_limit_seconds, cost_limit_micros, created_at`

// Create stores a new window. The shared pool is stored with a NULL
// user_id.
func (s *WindowStore) Create(ctx context.Context, w window.Window) error {
	var userID any
	if !w.Shared() {
		userID = w.UserID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quota_windows (`+windowColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, w.ID, userID, string(w.Kind), formatTime(w.Start), nullTime(w.End),
		w.TTSLimitChars, w.STTLimitSeconds, int64(w.CostLimit), formatTime(w.CreatedAt))
	return err
}

// ListByUser returns all windows scoped to a user.
func (s *WindowStore) ListByUser(ctx context.Context, userID int64) ([]window.Window, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+windowColumns+` FROM quota_windows
		WHERE user_id = ? ORDER BY start_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []window.Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// SharedPool returns the global shared-pool window.
func (s *WindowStore) SharedPool(ctx context.Context) (window.Window, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+windowColumns+` FROM quota_windows
		WHERE kind = ? ORDER BY start_at DESC LIMIT 1
	`, string(window.SharedPool))

	w, err := scanWindow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return window.Window{}, ports.ErrNotFound
	}
	return w, err
}

// ExtendEnd moves a window's end date forward (renewal).
func (s *WindowStore) ExtendEnd(ctx context.Context, id string, end time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE quota_windows SET end_at = ? WHERE id = ?
	`, formatTime(end), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func scanWindow(row rowScanner) (window.Window, error) {
	var w window.Window
	var userID sql.NullInt64
	var kind, startAt, createdAt string
	var endAt sql.NullString
	var costMicros int64

	err := row.Scan(&w.ID, &userID, &kind, &startAt, &endAt,
		&w.TTSLimitChars, &w.STTLimitSeconds, &costMicros, &createdAt)
	if err != nil {
		return window.Window{}, err
	}

	w.UserID = userID.Int64
	w.Kind = window.Kind(kind)
	w.Start = parseTime(startAt)
	if endAt.Valid {
		w.End = parseTime(endAt.String)
	}
	w.CostLimit = money.Amount(costMicros)
	w.CreatedAt = parseTime(createdAt)
	return w, nil
}

// Ensure interface compliance.
var _ ports.WindowStore = (*WindowStore)(nil)
