package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	specpkg "github.com/commissionhub/portal/api"
	"github.com/commissionhub/portal/internal/api"
	"github.com/commissionhub/portal/internal/apiclient"
	"github.com/commissionhub/portal/internal/config"
	"github.com/commissionhub/portal/internal/layout"
	"github.com/commissionhub/portal/internal/metrics"
	"github.com/commissionhub/portal/internal/notification"
	"github.com/commissionhub/portal/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	client, err := apiclient.NewClient(cfg.APIBaseURL,
		apiclient.WithToken(cfg.APIToken),
		apiclient.WithTimeout(cfg.APITimeout),
	)
	if err != nil {
		slog.Error("failed to create backend client", "error", err)
		os.Exit(1)
	}

	layouts, err := layout.Load(cfg.LayoutsFile)
	if err != nil {
		slog.Error("failed to load layouts", "error", err, "path", cfg.LayoutsFile)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	sessions := session.NewStore(client, session.WithObserver(m))
	notifications := notification.NewStore(client, notification.WithObserver(m))

	ctx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	go sessions.EnsureLoaded(ctx)

	if cfg.NotificationRefreshInterval > 0 {
		go notification.NewRefresher(notifications, cfg.NotificationRefreshInterval).Start(ctx)
	} else {
		go notifications.FetchUnreadCount(ctx)
	}

	router := api.NewRouter(api.RouterDeps{
		Sessions:        sessions,
		Notifications:   notifications,
		Layouts:         layouts,
		SignInURL:       cfg.SignInURL,
		UnauthorizedURL: cfg.UnauthorizedURL,
		LoadingWait:     cfg.GateLoadingWait,
		GateObserver:    m,
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Version:         cfg.Version,
		OpenAPISpec:     specpkg.OpenAPISpec,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting portal shell",
			"port", cfg.Port,
			"version", cfg.Version,
			"layouts", len(layouts.Layouts()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	cancelBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
