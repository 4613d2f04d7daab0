package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/commissionhub/portal/internal/apiclient"
)

// IdentityFetcher retrieves the identity bound to the current credential.
// It must return apiclient.ErrUnauthenticated when there is no session.
type IdentityFetcher interface {
	Me(ctx context.Context) (*apiclient.Viewer, error)
}

// Observer is notified when a load attempt settles.
type Observer interface {
	IdentityLoaded(status Status, elapsed time.Duration)
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithObserver registers an Observer for load outcomes.
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

// Store owns the viewer's session. It is created once per process and shared
// by every gate; all mutations go through its methods.
type Store struct {
	fetcher  IdentityFetcher
	observer Observer
	now      func() time.Time

	mu      sync.Mutex
	state   Session
	changed chan struct{}
}

// NewStore creates a Store in StatusUnresolved.
func NewStore(fetcher IdentityFetcher, opts ...StoreOption) *Store {
	s := &Store{
		fetcher: fetcher,
		now:     time.Now,
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Changed returns a channel that is closed on the next state change.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// EnsureLoaded resolves the session if it is unresolved. The caller that
// observes StatusUnresolved moves the store to StatusLoading before any I/O
// and performs the single identity fetch; every other call is a no-op.
// It reports whether this call performed the fetch.
func (s *Store) EnsureLoaded(ctx context.Context) bool {
	s.mu.Lock()
	if s.state.Status != StatusUnresolved {
		s.mu.Unlock()
		return false
	}
	s.state.Generation++
	s.applyLocked(EventLoad)
	gen := s.state.Generation
	s.mu.Unlock()

	start := s.now()
	viewer, err := s.fetcher.Me(ctx)
	if err == nil && viewer == nil {
		err = apiclient.ErrMalformedResponse
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Generation != gen {
		slog.Debug("discarding stale identity response", "generation", gen, "current", s.state.Generation)
		return true
	}

	switch {
	case err == nil:
		s.state.Identity = &Identity{ID: viewer.ID, Name: viewer.Name, Email: viewer.Email}
		s.state.Roles = parseRoles(viewer.Roles)
		s.state.Err = nil
		s.applyLocked(EventSucceed)
		slog.Info("session authenticated", "userId", viewer.ID, "roles", s.state.Roles)
	case errors.Is(err, apiclient.ErrUnauthenticated):
		s.clearIdentityLocked()
		s.applyLocked(EventUnauthenticated)
		slog.Info("session anonymous")
	default:
		s.clearIdentityLocked()
		s.state.Err = err
		s.applyLocked(EventFail)
		slog.Warn("session load failed", "error", err)
	}
	s.state.LoadedAt = s.now()

	if s.observer != nil {
		s.observer.IdentityLoaded(s.state.Status, s.now().Sub(start))
	}

	return true
}

// Retry starts a new load cycle after a failed or anonymous resolution.
// It is the explicit, caller-triggered recovery path; the store never
// retries on its own. Returns false when no fetch was performed.
func (s *Store) Retry(ctx context.Context) bool {
	s.mu.Lock()
	switch s.state.Status {
	case StatusError, StatusAnonymous:
		s.state.Generation++
		s.clearIdentityLocked()
		s.applyLocked(EventReset)
	case StatusUnresolved:
	default:
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	return s.EnsureLoaded(ctx)
}

// SignOut drops the identity and moves the store to StatusAnonymous.
// An identity fetch still in flight is discarded when it returns.
func (s *Store) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Generation++
	s.clearIdentityLocked()
	s.applyLocked(EventSignOut)
	slog.Info("session signed out")
}

// Reset drops the identity and returns the store to StatusUnresolved so the
// next EnsureLoaded authenticates again.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Generation++
	s.clearIdentityLocked()
	s.state.LoadedAt = time.Time{}
	s.applyLocked(EventReset)
}

// Wait blocks until the session is resolved or ctx is done. It does not
// trigger a load; callers pair it with EnsureLoaded.
func (s *Store) Wait(ctx context.Context) (Session, error) {
	for {
		s.mu.Lock()
		snap := s.snapshotLocked()
		ch := s.changed
		s.mu.Unlock()

		if !snap.Status.Pending() {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ch:
		}
	}
}

func (s *Store) applyLocked(ev Event) {
	to, err := Next(s.state.Status, ev)
	if err != nil {
		slog.Error("rejected session transition", "error", err)
		return
	}
	s.state.Status = to
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Store) clearIdentityLocked() {
	s.state.Identity = nil
	s.state.Roles = nil
	s.state.Err = nil
}

func (s *Store) snapshotLocked() Session {
	snap := s.state
	if s.state.Identity != nil {
		id := *s.state.Identity
		snap.Identity = &id
	}
	snap.Roles = slices.Clone(s.state.Roles)
	return snap
}

// parseRoles keeps the known portal roles, sorted and deduplicated.
func parseRoles(tags []string) []Role {
	roles := make([]Role, 0, len(tags))
	for _, tag := range tags {
		r, err := ParseRole(tag)
		if err != nil {
			slog.Debug("ignoring role", "error", err)
			continue
		}
		roles = append(roles, r)
	}
	slices.Sort(roles)
	return slices.Compact(roles)
}
