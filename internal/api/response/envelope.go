package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Error represents a structured API error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the standard response wrapper shared with the backend API:
// success flag, payload and an RFC 3339 timestamp.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Error     *Error `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId,omitempty"`
}

// Now returns the envelope timestamp for the current instant.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// JSON writes a JSON response with the given status code and envelope.
func JSON(w http.ResponseWriter, status int, env Envelope) {
	if env.Timestamp == "" {
		env.Timestamp = Now()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Success writes a successful JSON response.
func Success(w http.ResponseWriter, status int, data any, requestID string) {
	JSON(w, status, Envelope{
		Success:   true,
		Data:      data,
		RequestID: requestID,
	})
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Err writes an error JSON response.
func Err(w http.ResponseWriter, status int, code string, message string, requestID string) {
	ErrWithDetails(w, status, code, message, nil, requestID)
}

// ErrWithDetails writes an error JSON response with additional details.
func ErrWithDetails(w http.ResponseWriter, status int, code string, message string, details any, requestID string) {
	JSON(w, status, Envelope{
		Success: false,
		Data:    nil,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
		RequestID: requestID,
	})
}
