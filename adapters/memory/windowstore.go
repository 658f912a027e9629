package memory

import (
	"context"
	"sync"
	"time"

	"github.com/artpar/voxmeter/domain/window"
	"github.com/artpar/voxmeter/ports"
)

// WindowStore is an in-memory implementation of ports.WindowStore.
type WindowStore struct {
	mu      sync.RWMutex
	windows []window.Window
}

// NewWindowStore creates a new in-memory window store.
func NewWindowStore() *WindowStore {
	return &WindowStore{}
}

// Create stores a new window.
func (s *WindowStore) Create(ctx context.Context, w window.Window) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.windows {
		if existing.ID == w.ID {
			return ports.ErrExists
		}
	}
	s.windows = append(s.windows, w)
	return nil
}

// ListByUser returns all windows scoped to a user.
func (s *WindowStore) ListByUser(ctx context.Context, userID int64) ([]window.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []window.Window
	for _, w := range s.windows {
		if !w.Shared() && w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

// SharedPool returns the global shared-pool window.
func (s *WindowStore) SharedPool(ctx context.Context) (window.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.windows {
		if w.Shared() {
			return w, nil
		}
	}
	return window.Window{}, ports.ErrNotFound
}

// ExtendEnd moves a window's end date forward.
func (s *WindowStore) ExtendEnd(ctx context.Context, id string, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.windows {
		if w.ID == id {
			s.windows[i].End = end
			return nil
		}
	}
	return ports.ErrNotFound
}

// Ensure interface compliance.
var _ ports.WindowStore = (*WindowStore)(nil)
