package handler

import (
	"net/http"

	"github.com/commissionhub/portal/internal/api/middleware"
	"github.com/commissionhub/portal/internal/api/response"
	"github.com/commissionhub/portal/internal/session"
)

// SessionReader reads the current session.
type SessionReader interface {
	Snapshot() session.Session
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	sessions SessionReader
	version  string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(sessions SessionReader, version string) *HealthHandler {
	return &HealthHandler{
		sessions: sessions,
		version:  version,
	}
}

type healthData struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Session string `json:"session"`
}

// ServeHTTP handles the health check request. The shell reports degraded
// while the backend could not resolve the session.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	sessionStatus := h.sessions.Snapshot().Status

	status := "healthy"
	if sessionStatus == session.StatusError {
		status = "degraded"
	}

	response.Success(w, http.StatusOK, healthData{
		Status:  status,
		Version: h.version,
		Session: sessionStatus.String(),
	}, requestID)
}
