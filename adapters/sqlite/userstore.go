package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/voxmeter/domain/user"
	"github.com/artpar/voxmeter/domain/window"
	"github.com/artpar/voxmeter/ports"
)

// UserStore implements ports.UserStore using SQLite.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new SQLite user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id int64) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, username, vip, created_at
		FROM users WHERE id = ?
	`, id)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, ports.ErrNotFound
	}
	return u, err
}

// Register stores a new user and their free-trial window in a single
// transaction: both rows become visible together or not at all.
func (s *UserStore) Register(ctx context.Context, u user.User, trial window.Window) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, username, vip, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, u.FirstName, u.LastName, u.Username, u.VIP, formatTime(u.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ports.ErrExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO quota_windows (
			id, user_id, kind, start_at, end_at,
			tts_limit_chars, stt_limit_seconds, cost_limit_micros, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trial.ID, trial.UserID, string(trial.Kind), formatTime(trial.Start), nullTime(trial.End),
		trial.TTSLimitChars, trial.STTLimitSeconds, int64(trial.CostLimit), formatTime(trial.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert trial window: %w", err)
	}

	return tx.Commit()
}

// List returns users with pagination, ordered by ID.
func (s *UserStore) List(ctx context.Context, limit, offset int) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, username, vip, created_at
		FROM users ORDER BY id LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Count returns total user count.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (user.User, error) {
	var u user.User
	var first, last, username sql.NullString
	var createdAt string

	err := row.Scan(&u.ID, &first, &last, &username, &u.VIP, &createdAt)
	if err != nil {
		return user.User{}, err
	}

	u.FirstName = first.String
	u.LastName = last.String
	u.Username = username.String
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

// Ensure interface compliance.
var _ ports.UserStore = (*UserStore)(nil)
