package notification

import (
	"context"
	"log/slog"
	"time"
)

// Refresher calls FetchUnreadCount on a fixed interval. The store itself
// never polls; running a Refresher is the caller's choice of cadence.
type Refresher struct {
	store    *Store
	interval time.Duration
}

// NewRefresher creates a new Refresher.
func NewRefresher(store *Store, interval time.Duration) *Refresher {
	return &Refresher{
		store:    store,
		interval: interval,
	}
}

// Start refreshes once immediately, then on every tick. It blocks until ctx
// is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	slog.Info("notification refresher started", "interval", r.interval.String())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.store.FetchUnreadCount(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("notification refresher stopped")
			return
		case <-ticker.C:
			res := r.store.FetchUnreadCount(ctx)
			if res.Err != nil {
				slog.Debug("notification refresher: fetch skipped", "error", res.Err)
			}
		}
	}
}
