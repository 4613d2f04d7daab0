package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// CountFetcher retrieves the viewer's unread notification count.
type CountFetcher interface {
	UnreadCount(ctx context.Context) (int, error)
}

// ReadAllMarker marks every notification as read on the backend.
type ReadAllMarker interface {
	MarkAllRead(ctx context.Context) error
}

// Backend is the network side of the Store.
type Backend interface {
	CountFetcher
	ReadAllMarker
}

// Observer is notified after every fetch attempt.
type Observer interface {
	UnreadCountFetched(ok bool, elapsed time.Duration)
}

// Result is the outcome of a best-effort refresh. A failed refresh keeps the
// previous count; Err is informational and never needs handling.
type Result struct {
	Count   int
	Applied bool
	Err     error
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithObserver registers an Observer for fetch outcomes.
func WithObserver(o Observer) StoreOption {
	return func(s *Store) {
		s.observer = o
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds the single unread counter shared by every badge surface.
// Concurrent fetches are last-writer-wins.
type Store struct {
	backend  Backend
	observer Observer
	now      func() time.Time

	mu          sync.Mutex
	count       int
	lastFetched time.Time
	changed     chan struct{}
}

// NewStore creates a Store with a zero count.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Count returns the current unread count.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// LastFetched returns when the count was last replaced by a fetch.
// The zero time means it never was.
func (s *Store) LastFetched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFetched
}

// Changed returns a channel that is closed on the next count change.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// FetchUnreadCount performs one fetch and, on success, replaces the count.
// Failures are absorbed: the previous count stays and nothing is retried.
func (s *Store) FetchUnreadCount(ctx context.Context) (res Result) {
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			res = Result{Count: s.Count(), Err: fmt.Errorf("unread count fetch panicked: %v", r)}
			slog.Error("unread count fetch panicked", "panic", r)
		}
		if s.observer != nil {
			s.observer.UnreadCountFetched(res.Applied, s.now().Sub(start))
		}
	}()

	n, err := s.backend.UnreadCount(ctx)
	if err == nil && n < 0 {
		err = fmt.Errorf("negative unread count %d", n)
	}
	if err != nil {
		slog.Debug("unread count refresh failed; keeping previous value", "error", err)
		return Result{Count: s.Count(), Err: err}
	}

	s.mu.Lock()
	s.setLocked(n)
	s.lastFetched = s.now()
	s.mu.Unlock()

	return Result{Count: n, Applied: true}
}

// Decrement lowers the count by n, clamping at zero. n <= 0 is a no-op.
// It is a local, optimistic update reconciled by the next fetch.
func (s *Store) Decrement(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return s.count
	}
	s.setLocked(max(s.count-n, 0))
	return s.count
}

// Clear sets the count to zero without a network call.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(0)
}

// MarkAllRead marks everything read on the backend, then clears the count.
// On failure the count is left untouched and the error is returned.
func (s *Store) MarkAllRead(ctx context.Context) error {
	if err := s.backend.MarkAllRead(ctx); err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	s.Clear()
	return nil
}

func (s *Store) setLocked(n int) {
	if n == s.count {
		return
	}
	s.count = n
	close(s.changed)
	s.changed = make(chan struct{})
}
