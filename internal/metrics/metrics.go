package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront_admin"

// Outcome labels
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport_error"
	OutcomeNoToken   = "no_token"
	OutcomeInvalid   = "invalid_token"
	OutcomeDiscarded = "discarded"
)

// AppMetrics holds the console's metric instruments. A nil *AppMetrics is valid and records nothing.
type AppMetrics struct {
	registry *prometheus.Registry

	LoginTotal          *prometheus.CounterVec
	RehydrateTotal      *prometheus.CounterVec
	GuardDecisionsTotal *prometheus.CounterVec
	SessionStatus       *prometheus.GaugeVec
}

// New creates the instruments and registers them on a fresh registry
func New() *AppMetrics {
	m := &AppMetrics{
		registry: prometheus.NewRegistry(),
		LoginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_total",
			Help:      "Login attempts by kind (user, admin) and outcome.",
		}, []string{"kind", "outcome"}),
		RehydrateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rehydrate_total",
			Help:      "Session rehydration results by outcome.",
		}, []string{"outcome"}),
		GuardDecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Route guard decisions by kind.",
		}, []string{"decision"}),
		SessionStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_status",
			Help:      "1 for the session's current status, 0 otherwise.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.LoginTotal,
		m.RehydrateTotal,
		m.GuardDecisionsTotal,
		m.SessionStatus,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *AppMetrics) ObserveLogin(kind, outcome string) {
	if m == nil {
		return
	}
	m.LoginTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *AppMetrics) ObserveRehydrate(outcome string) {
	if m == nil {
		return
	}
	m.RehydrateTotal.WithLabelValues(outcome).Inc()
}

func (m *AppMetrics) ObserveGuardDecision(decision string) {
	if m == nil {
		return
	}
	m.GuardDecisionsTotal.WithLabelValues(decision).Inc()
}

// SetSessionStatus marks status as current and every other known status as not
func (m *AppMetrics) SetSessionStatus(status string, known ...string) {
	if m == nil {
		return
	}
	for _, s := range known {
		m.SessionStatus.WithLabelValues(s).Set(0)
	}
	m.SessionStatus.WithLabelValues(status).Set(1)
}

// Handler serves the registry in the Prometheus exposition format
func (m *AppMetrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
