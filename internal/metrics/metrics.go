package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/commissionhub/portal/internal/authgate"
	"github.com/commissionhub/portal/internal/session"
)

// Metrics holds the Prometheus collectors of the portal shell. It satisfies
// the session, notification and gate observer interfaces.
type Metrics struct {
	IdentityLoads        *prometheus.CounterVec
	IdentityLoadDuration prometheus.Histogram

	UnreadFetches       *prometheus.CounterVec
	UnreadFetchDuration prometheus.Histogram

	GateDecisions *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered on registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		IdentityLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_identity_loads_total",
				Help: "Identity fetches by resulting session status",
			},
			[]string{"status"},
		),
		IdentityLoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "portal_identity_load_duration_seconds",
				Help:    "Duration of identity fetches",
				Buckets: prometheus.DefBuckets,
			},
		),
		UnreadFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_unread_count_fetches_total",
				Help: "Unread count fetches by result",
			},
			[]string{"result"},
		),
		UnreadFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "portal_unread_count_fetch_duration_seconds",
				Help:    "Duration of unread count fetches",
				Buckets: prometheus.DefBuckets,
			},
		),
		GateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_gate_decisions_total",
				Help: "Layout gate decisions by layout and outcome",
			},
			[]string{"layout", "outcome"},
		),
	}
}

// IdentityLoaded records a settled identity fetch.
func (m *Metrics) IdentityLoaded(status session.Status, elapsed time.Duration) {
	m.IdentityLoads.WithLabelValues(status.String()).Inc()
	m.IdentityLoadDuration.Observe(elapsed.Seconds())
}

// UnreadCountFetched records an unread count fetch.
func (m *Metrics) UnreadCountFetched(ok bool, elapsed time.Duration) {
	result := "applied"
	if !ok {
		result = "kept_previous"
	}
	m.UnreadFetches.WithLabelValues(result).Inc()
	m.UnreadFetchDuration.Observe(elapsed.Seconds())
}

// GateDecided records a layout gate decision.
func (m *Metrics) GateDecided(layout string, outcome authgate.Outcome) {
	m.GateDecisions.WithLabelValues(layout, outcome.String()).Inc()
}
