package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Tracked       *prometheus.CounterVec
	Sampled       prometheus.Counter
	BreakerDrops  prometheus.Counter
	PersistErrors prometheus.Counter
	BreakerOpen   prometheus.Gauge
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers on reg so tests can use a private registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Tracked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_audit_ops_tracked_total",
			Help: "Ops audit events written to the outbox, by action",
		}, []string{"action"}),
		Sampled: f.NewCounter(prometheus.CounterOpts{
			Name: "veritas_audit_ops_sampled_out_total",
			Help: "Ops audit events dropped by sampling",
		}),
		BreakerDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "veritas_audit_ops_breaker_dropped_total",
			Help: "Ops audit events dropped while the outbox breaker was open",
		}),
		PersistErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "veritas_audit_ops_persist_failures_total",
			Help: "Ops audit events that failed to persist",
		}),
		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "veritas_audit_ops_breaker_open",
			Help: "1 while the ops outbox breaker is open",
		}),
	}
}

func (m *Metrics) setBreaker(open bool) {
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
