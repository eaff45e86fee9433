package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the verification lifecycle: attempts created, state
// transitions, vendor submissions and result callbacks.
type Metrics struct {
	AttemptsCreated    prometheus.Counter
	Transitions        *prometheus.CounterVec
	SubmissionOutcomes *prometheus.CounterVec
	SubmitDuration     prometheus.Histogram
	ResultsHandled     *prometheus.CounterVec
	LedgerEntries      *prometheus.CounterVec
}

// New registers the metrics with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics with reg. Tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AttemptsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "veritas_verification_attempts_created_total",
			Help: "Total number of verification attempts created",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_verification_transitions_total",
			Help: "Attempt state transitions by target status",
		}, []string{"status"}),
		SubmissionOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_verification_submissions_total",
			Help: "Vendor submissions by resulting status (submitted, must_retry)",
		}, []string{"outcome"}),
		SubmitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "veritas_verification_submit_duration_seconds",
			Help:    "Duration of vendor submissions",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ResultsHandled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_verification_results_total",
			Help: "Vendor result callbacks by result",
		}, []string{"result"}),
		LedgerEntries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_verification_ledger_entries_total",
			Help: "Status ledger entries appended by status",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncrementAttemptCreated() {
	m.AttemptsCreated.Inc()
}

func (m *Metrics) IncrementTransition(status string) {
	m.Transitions.WithLabelValues(status).Inc()
}

// ObserveSubmit records the duration and outcome of one submission.
func (m *Metrics) ObserveSubmit(start time.Time, outcome string) {
	m.SubmitDuration.Observe(time.Since(start).Seconds())
	m.SubmissionOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementResult(result string) {
	m.ResultsHandled.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementLedgerEntry(status string) {
	m.LedgerEntries.WithLabelValues(status).Inc()
}
