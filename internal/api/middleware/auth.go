package middleware

import (
	"context"

	"github.com/commissionhub/portal/internal/session"
)

const sessionKey contextKey = "session"

// WithSession stores the admitted session in the context.
func WithSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// GetSession retrieves the session admitted by a gate. ok is false outside a
// gated route.
func GetSession(ctx context.Context) (s session.Session, ok bool) {
	s, ok = ctx.Value(sessionKey).(session.Session)
	return s, ok
}
