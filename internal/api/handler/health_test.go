package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/commissionhub/portal/internal/api/handler"
	"github.com/commissionhub/portal/internal/session"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name        string
		status      session.Status
		wantHealth  string
		wantSession string
	}{
		{name: "authenticated", status: session.StatusAuthenticated, wantHealth: "healthy", wantSession: "authenticated"},
		{name: "anonymous", status: session.StatusAnonymous, wantHealth: "healthy", wantSession: "anonymous"},
		{name: "loading", status: session.StatusLoading, wantHealth: "healthy", wantSession: "loading"},
		{name: "error", status: session.StatusError, wantHealth: "degraded", wantSession: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockSessionStore{snapshot: session.Session{Status: tt.status}}
			h := handler.NewHealthHandler(store, "0.1.0")

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			env := parseEnvelope(t, w)
			data := env["data"].(map[string]interface{})
			assert.Equal(t, tt.wantHealth, data["status"])
			assert.Equal(t, "0.1.0", data["version"])
			assert.Equal(t, tt.wantSession, data["session"])
			assert.Nil(t, env["error"])
		})
	}
}
