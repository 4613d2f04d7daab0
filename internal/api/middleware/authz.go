package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/commissionhub/portal/internal/api/response"
	"github.com/commissionhub/portal/internal/authgate"
	"github.com/commissionhub/portal/internal/session"
)

// SessionSource is the part of the session store a gate reads.
type SessionSource interface {
	EnsureLoaded(ctx context.Context) bool
	Snapshot() session.Session
	Wait(ctx context.Context) (session.Session, error)
}

// GateObserver is notified of every gate decision.
type GateObserver interface {
	GateDecided(layout string, outcome authgate.Outcome)
}

// GateConfig describes one gated layout.
type GateConfig struct {
	Layout          string
	Requirement     authgate.Requirement
	SignInURL       string
	UnauthorizedURL string
	RetryPath       string
	// LoadingWait is how long a request may wait for a pending session
	// before the loading placeholder is served. Zero never waits.
	LoadingWait time.Duration
	Observer    GateObserver
}

type loadingData struct {
	Status string `json:"status"`
	Layout string `json:"layout"`
}

// RequireRole returns middleware that admits a request only once the session
// is authenticated and satisfies cfg.Requirement. Every request triggers
// EnsureLoaded; the store collapses the triggers into a single fetch.
func RequireRole(store SessionSource, cfg GateConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			// The fetch outlives this request; a client hanging up must not
			// turn the shared session into an error.
			go store.EnsureLoaded(context.WithoutCancel(r.Context()))

			snap := store.Snapshot()
			if snap.Status.Pending() && cfg.LoadingWait > 0 {
				ctx, cancel := context.WithTimeout(r.Context(), cfg.LoadingWait)
				snap, _ = store.Wait(ctx)
				cancel()
			}

			decision := authgate.Evaluate(cfg.Requirement, snap)
			if cfg.Observer != nil {
				cfg.Observer.GateDecided(cfg.Layout, decision.Outcome)
			}

			switch decision.Outcome {
			case authgate.OutcomeRender:
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), snap)))
			case authgate.OutcomeLoading:
				w.Header().Set("Retry-After", "1")
				response.Success(w, http.StatusAccepted, loadingData{Status: "loading", Layout: cfg.Layout}, requestID)
			case authgate.OutcomeSignIn:
				http.Redirect(w, r, withNext(cfg.SignInURL, r.URL.RequestURI()), http.StatusSeeOther)
			case authgate.OutcomeDenyUnauthorized:
				slog.Info("layout access denied",
					"layout", cfg.Layout,
					"requirement", cfg.Requirement.String(),
					"requestId", requestID,
				)
				http.Redirect(w, r, cfg.UnauthorizedURL, http.StatusSeeOther)
			default:
				response.ErrWithDetails(w, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE",
					"We could not verify your session", map[string]string{"retry": cfg.RetryPath}, requestID)
			}
		})
	}
}

// withNext appends the return path to the sign-in URL.
func withNext(signIn, next string) string {
	u, err := url.Parse(signIn)
	if err != nil {
		return signIn
	}
	q := u.Query()
	q.Set("next", next)
	u.RawQuery = q.Encode()
	return u.String()
}
