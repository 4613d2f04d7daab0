package handler

import (
	"log/slog"
	"net/http"

	"github.com/commissionhub/portal/internal/api/middleware"
	"github.com/commissionhub/portal/internal/api/response"
	"github.com/commissionhub/portal/internal/layout"
)

// CountReader reads the shared unread count.
type CountReader interface {
	Count() int
}

type layoutResponse struct {
	Layout      string           `json:"layout"`
	Title       string           `json:"title"`
	Requires    string           `json:"requires"`
	Path        string           `json:"path"`
	Viewer      identityResponse `json:"viewer"`
	Roles       []string         `json:"roles"`
	UnreadCount int              `json:"unreadCount"`
}

// LayoutHandler renders the shell of a gated layout: the layout, the viewer
// and the badge count. It must be mounted behind middleware.RequireRole.
type LayoutHandler struct {
	layout layout.Layout
	counts CountReader
}

// NewLayoutHandler creates a new LayoutHandler.
func NewLayoutHandler(l layout.Layout, counts CountReader) *LayoutHandler {
	return &LayoutHandler{
		layout: l,
		counts: counts,
	}
}

// ServeHTTP handles GET {layout.Path} and everything below it.
func (h *LayoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	s, ok := middleware.GetSession(r.Context())
	if !ok || s.Identity == nil {
		// Reaching here means the handler was mounted without its gate.
		slog.Error("layout rendered without an admitted session", "layout", h.layout.Name, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong", requestID)
		return
	}

	roles := make([]string, 0, len(s.Roles))
	for _, role := range s.Roles {
		roles = append(roles, string(role))
	}

	response.Success(w, http.StatusOK, layoutResponse{
		Layout:   h.layout.Name,
		Title:    h.layout.Title,
		Requires: h.layout.Requires,
		Path:     r.URL.Path,
		Viewer: identityResponse{
			ID:    s.Identity.ID,
			Name:  s.Identity.Name,
			Email: s.Identity.Email,
		},
		Roles:       roles,
		UnreadCount: h.counts.Count(),
	}, requestID)
}
