package analyst

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is optional Prometheus instrumentation for the executor and
// limiter. A nil *Metrics disables collection; every observe method is
// nil-safe.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	retriesTotal    prometheus.Counter
	repairsTotal    prometheus.Counter
	requestDuration prometheus.Histogram
	activeSlots     prometheus.Gauge
	queuedWaiters   prometheus.Gauge
}

// NewMetrics registers the collectors with reg (e.g. prometheus.DefaultRegisterer).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "analyst_requests_total",
			Help: "Structured requests finished, by outcome kind (\"ok\" on success).",
		}, []string{"outcome"}),
		retriesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "analyst_upstream_retries_total",
			Help: "Transport-level retry attempts against the upstream service.",
		}),
		repairsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "analyst_schema_repairs_total",
			Help: "Schema-repair round trips triggered by validation failures.",
		}),
		requestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "analyst_request_duration_seconds",
			Help:    "End-to-end structured request duration.",
			Buckets: prometheus.DefBuckets,
		}),
		activeSlots: f.NewGauge(prometheus.GaugeOpts{
			Name: "analyst_active_slots",
			Help: "Concurrency slots currently held.",
		}),
		queuedWaiters: f.NewGauge(prometheus.GaugeOpts{
			Name: "analyst_queued_waiters",
			Help: "Acquisitions waiting for a concurrency slot.",
		}),
	}
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retriesTotal.Inc()
}

func (m *Metrics) observeRepair() {
	if m == nil {
		return
	}
	m.repairsTotal.Inc()
}

func (m *Metrics) observeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.Observe(d.Seconds())
}

func (m *Metrics) observeSlots(active, pending int) {
	if m == nil {
		return
	}
	m.activeSlots.Set(float64(active))
	m.queuedWaiters.Set(float64(pending))
}
