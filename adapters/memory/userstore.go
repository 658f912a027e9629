// Package memory provides in-memory implementations of storage ports,
// used as test doubles.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/artpar/voxmeter/domain/user"
	"github.com/artpar/voxmeter/domain/window"
	"github.com/artpar/voxmeter/ports"
)

// UserStore is an in-memory implementation of ports.UserStore. It
// shares a WindowStore so registration stays atomic from the caller's
// point of view.
type UserStore struct {
	mu      sync.RWMutex
	users   map[int64]user.User
	windows *WindowStore
}

// NewUserStore creates a new in-memory user store backed by the given
// window store.
func NewUserStore(windows *WindowStore) *UserStore {
	return &UserStore{
		users:   make(map[int64]user.User),
		windows: windows,
	}
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, ports.ErrNotFound
	}
	return u, nil
}

// Register stores a new user and their trial window.
func (s *UserStore) Register(ctx context.Context, u user.User, trial window.Window) error {
	s.mu.Lock()
	if _, ok := s.users[u.ID]; ok {
		s.mu.Unlock()
		return ports.ErrExists
	}
	s.users[u.ID] = u
	s.mu.Unlock()

	return s.windows.Create(ctx, trial)
}

// List returns users with pagination, ordered by ID.
func (s *UserStore) List(ctx context.Context, limit, offset int) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []user.User
	for i := offset; i < len(ids) && (limit <= 0 || len(out) < limit); i++ {
		out = append(out, s.users[ids[i]])
	}
	return out, nil
}

// Count returns total user count.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// Ensure interface compliance.
var _ ports.UserStore = (*UserStore)(nil)
