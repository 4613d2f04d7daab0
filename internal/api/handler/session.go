package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/commissionhub/portal/internal/api/middleware"
	"github.com/commissionhub/portal/internal/api/response"
	"github.com/commissionhub/portal/internal/session"
)

// SessionStore is the part of session.Store the session endpoints use.
type SessionStore interface {
	Snapshot() session.Session
	Retry(ctx context.Context) bool
	SignOut()
}

// CountClearer drops the unread count of a viewer that signed out.
type CountClearer interface {
	Clear()
}

type identityResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type sessionResponse struct {
	Status   string            `json:"status"`
	Identity *identityResponse `json:"identity"`
	Roles    []string          `json:"roles"`
	LoadedAt *string           `json:"loadedAt,omitempty"`
	// Error is a fixed message; the underlying load failure is only logged.
	Error *string `json:"error,omitempty"`
}

// SessionHandler serves the viewer's session state.
type SessionHandler struct {
	store  SessionStore
	counts CountClearer
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(store SessionStore, counts CountClearer) *SessionHandler {
	return &SessionHandler{
		store:  store,
		counts: counts,
	}
}

// Get handles GET /api/session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	response.Success(w, http.StatusOK, toSessionResponse(h.store.Snapshot()), requestID)
}

// Retry handles POST /api/session/retry. It waits for the new load to settle.
func (h *SessionHandler) Retry(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	h.store.Retry(context.WithoutCancel(r.Context()))

	response.Success(w, http.StatusOK, toSessionResponse(h.store.Snapshot()), requestID)
}

// SignOut handles POST /api/session/sign-out.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	h.store.SignOut()
	if h.counts != nil {
		h.counts.Clear()
	}

	response.Success(w, http.StatusOK, toSessionResponse(h.store.Snapshot()), requestID)
}

func toSessionResponse(s session.Session) sessionResponse {
	resp := sessionResponse{
		Status: s.Status.String(),
		Roles:  make([]string, 0, len(s.Roles)),
	}
	if s.Identity != nil {
		resp.Identity = &identityResponse{
			ID:    s.Identity.ID,
			Name:  s.Identity.Name,
			Email: s.Identity.Email,
		}
	}
	for _, role := range s.Roles {
		resp.Roles = append(resp.Roles, string(role))
	}
	if !s.LoadedAt.IsZero() {
		loaded := s.LoadedAt.UTC().Format(time.RFC3339)
		resp.LoadedAt = &loaded
	}
	if s.Status == session.StatusError {
		msg := "session could not be verified"
		resp.Error = &msg
	}
	return resp
}
