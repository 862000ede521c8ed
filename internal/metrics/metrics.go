package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics encapsulates Prometheus instrumentation for the discovery
// engine. All recording methods are nil-safe so components can run
// without instrumentation wired in.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	filterDuration prometheus.Histogram
	filterMatched  prometheus.Counter
	filterCalls    prometheus.Counter

	storeOps *prometheus.CounterVec

	reconciles *prometheus.CounterVec

	notificationsPushed *prometheus.CounterVec
}

// New registers the engine's collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	filterDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "discovery_filter_duration_seconds",
		Help:    "Duration of catalog filter passes",
		Buckets: prometheus.DefBuckets,
	})

	filterMatched := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discovery_filter_matched_total",
		Help: "Total properties matched across filter passes",
	})

	filterCalls := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discovery_filter_calls_total",
		Help: "Total filter passes executed",
	})

	storeOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_store_operations_total",
		Help: "Persistence adapter operations by backend, operation and outcome",
	}, []string{"backend", "op", "outcome"})

	reconciles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_session_reconciliations_total",
		Help: "Session reconciliation passes by outcome",
	}, []string{"outcome"})

	notificationsPushed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_notifications_pushed_total",
		Help: "Notifications pushed by kind",
	}, []string{"kind"})

	registry.MustRegister(filterDuration, filterMatched, filterCalls, storeOps, reconciles, notificationsPushed)

	return &Metrics{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		filterDuration:      filterDuration,
		filterMatched:       filterMatched,
		filterCalls:         filterCalls,
		storeOps:            storeOps,
		reconciles:          reconciles,
		notificationsPushed: notificationsPushed,
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

// ObserveFilter records one filter pass.
func (m *Metrics) ObserveFilter(matched int, duration time.Duration) {
	if m == nil {
		return
	}
	m.filterCalls.Inc()
	m.filterMatched.Add(float64(matched))
	m.filterDuration.Observe(duration.Seconds())
}

// RecordStoreOp records one persistence adapter operation.
func (m *Metrics) RecordStoreOp(backend, op string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.storeOps.WithLabelValues(backend, op, outcome).Inc()
}

// RecordReconcile records one session reconciliation pass. Outcome is one
// of "clean", "repaired" or "empty".
func (m *Metrics) RecordReconcile(outcome string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(outcome).Inc()
}

// RecordNotification counts one pushed notification.
func (m *Metrics) RecordNotification(kind string) {
	if m == nil {
		return
	}
	m.notificationsPushed.WithLabelValues(kind).Inc()
}
