package middleware

import (
	"log/slog"
	"net/http"

	"github.com/commissionhub/portal/internal/api/response"
)

// Recovery is the generic failure boundary: it recovers from panics and
// answers with an opaque error that offers a single retry action.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				requestID := GetRequestID(r.Context())
				slog.Error("panic recovered", "error", err, "requestId", requestID, "path", r.URL.Path)
				response.ErrWithDetails(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"Something went wrong", map[string]string{"action": "retry"}, requestID)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
