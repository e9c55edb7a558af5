// Package metricsvc exports the application metrics to Prometheus.
package metricsvc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/academia/core/guard"
)

const namespace = "academia"

// Metrics holds the Prometheus collectors of the application. It observes the session guards.
type Metrics struct {
	reg *prometheus.Registry

	GuardDecisions    *prometheus.CounterVec
	Redirects         *prometheus.CounterVec
	HydrationFailures prometheus.Counter
	LiveSessions      prometheus.Gauge
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

var _ guard.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them, along with the process & Go collectors, on a new registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		GuardDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_decisions_total",
				Help:      "Total session guard evaluations",
			},
			[]string{"guard", "phase"},
		),
		Redirects: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_redirects_total",
				Help:      "Total redirects issued by session guards & landing pages",
			},
			[]string{"guard", "path"},
		),
		HydrationFailures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_hydration_failures_total",
				Help:      "Total sessions that could not be restored from storage",
			},
		),
		LiveSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_sessions",
				Help:      "Number of sessions with an open event stream",
			},
		),
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "code"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (m *Metrics) GuardDecided(guardName, phase string) {
	m.GuardDecisions.WithLabelValues(guardName, phase).Inc()
}

func (m *Metrics) Redirected(guardName, path string) {
	m.Redirects.WithLabelValues(guardName, path).Inc()
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
