package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/go-chi/chi/v5"

	"github.com/commissionhub/portal/internal/api/handler"
	"github.com/commissionhub/portal/internal/api/middleware"
	"github.com/commissionhub/portal/internal/layout"
)

// retryPath is advertised by gates that could not verify the session.
const retryPath = "/api/session/retry"

// SessionStore is everything the router needs from the session store.
type SessionStore interface {
	middleware.SessionSource
	handler.SessionStore
}

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Sessions        SessionStore
	Notifications   handler.NotificationStore
	Layouts         *layout.Registry
	SignInURL       string
	UnauthorizedURL string
	LoadingWait     time.Duration
	GateObserver    middleware.GateObserver
	MetricsHandler  http.Handler
	Version         string
	OpenAPISpec     []byte
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.Sessions, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec, deps.Version)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	sessionHandler := handler.NewSessionHandler(deps.Sessions, deps.Notifications)
	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", sessionHandler.Get)
		r.Post("/retry", sessionHandler.Retry)
		r.Post("/sign-out", sessionHandler.SignOut)
	})

	notificationHandler := handler.NewNotificationHandler(deps.Notifications)
	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/unread-count", notificationHandler.UnreadCount)
		r.Post("/refresh", notificationHandler.Refresh)
		r.Post("/decrement", notificationHandler.Decrement)
		r.Post("/clear", notificationHandler.Clear)
		r.Post("/read-all", notificationHandler.MarkAllRead)
	})

	if deps.Layouts != nil {
		for _, l := range deps.Layouts.Layouts() {
			layoutHandler := handler.NewLayoutHandler(l, deps.Notifications)
			gate := middleware.RequireRole(deps.Sessions, middleware.GateConfig{
				Layout:          l.Name,
				Requirement:     l.Requirement(),
				SignInURL:       deps.SignInURL,
				UnauthorizedURL: deps.UnauthorizedURL,
				RetryPath:       retryPath,
				LoadingWait:     deps.LoadingWait,
				Observer:        deps.GateObserver,
			})

			r.Route(l.Path, func(r chi.Router) {
				r.Use(gate)
				r.Get("/", layoutHandler.ServeHTTP)
				r.Get("/*", layoutHandler.ServeHTTP)
			})
		}
	}

	return r
}
