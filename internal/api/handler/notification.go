package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/commissionhub/portal/internal/api/middleware"
	"github.com/commissionhub/portal/internal/api/response"
	"github.com/commissionhub/portal/internal/api/validation"
	"github.com/commissionhub/portal/internal/notification"
)

// NotificationStore is the part of notification.Store the badge endpoints use.
type NotificationStore interface {
	Count() int
	LastFetched() time.Time
	FetchUnreadCount(ctx context.Context) notification.Result
	Decrement(n int) int
	Clear()
	MarkAllRead(ctx context.Context) error
}

type decrementRequest struct {
	N *int `json:"n"`
}

type unreadCountResponse struct {
	Count       int     `json:"count"`
	LastFetched *string `json:"lastFetched"`
}

type refreshResponse struct {
	unreadCountResponse
	Refreshed bool `json:"refreshed"`
}

// NotificationHandler serves the shared unread counter.
type NotificationHandler struct {
	store NotificationStore
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// UnreadCount handles GET /api/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	response.Success(w, http.StatusOK, h.current(), requestID)
}

// Refresh handles POST /api/notifications/refresh. A failed refresh is not
// an error for the caller: the previous count is returned with
// refreshed=false.
func (h *NotificationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	res := h.store.FetchUnreadCount(r.Context())

	response.Success(w, http.StatusOK, refreshResponse{
		unreadCountResponse: h.current(),
		Refreshed:           res.Applied,
	}, requestID)
}

// Decrement handles POST /api/notifications/decrement. An empty body
// decrements by one.
func (h *NotificationHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<10)
	var req decrementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateDecrementRequest(validation.DecrementRequest{N: req.N})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	n := 1
	if req.N != nil {
		n = *req.N
	}
	h.store.Decrement(n)

	response.Success(w, http.StatusOK, h.current(), requestID)
}

// Clear handles POST /api/notifications/clear.
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	h.store.Clear()

	response.Success(w, http.StatusOK, h.current(), requestID)
}

// MarkAllRead handles POST /api/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	if err := h.store.MarkAllRead(r.Context()); err != nil {
		slog.Error("failed to mark notifications read", "error", err, "requestId", requestID)
		response.Err(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Could not mark notifications as read", requestID)
		return
	}

	response.Success(w, http.StatusOK, h.current(), requestID)
}

func (h *NotificationHandler) current() unreadCountResponse {
	resp := unreadCountResponse{Count: h.store.Count()}
	if t := h.store.LastFetched(); !t.IsZero() {
		s := t.UTC().Format(time.RFC3339)
		resp.LastFetched = &s
	}
	return resp
}
