package compliance

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for compliance audit persistence.
type Metrics struct {
	EventsEmitted   *prometheus.CounterVec
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_audit_events_emitted_total",
			Help: "Audit events written to the outbox, by action",
		}, []string{"action"}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_audit_persist_failures_total",
			Help: "Audit events that failed to persist",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veritas_audit_persist_duration_seconds",
			Help:    "Time spent writing an audit event to the outbox",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25},
		}),
	}
}

// record counts one append. Duration is observed only for successful writes.
func (m *Metrics) record(action string, took time.Duration, err error) {
	if err != nil {
		m.PersistFailures.Inc()
		return
	}
	m.PersistDuration.Observe(took.Seconds())
	m.EventsEmitted.WithLabelValues(action).Inc()
}
