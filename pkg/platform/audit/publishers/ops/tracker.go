// Package ops records operational audit events on a best-effort basis.
// Vendor failures and breaker transitions land in the outbox when it is
// healthy; a failing outbox never fails the caller.
package ops

import (
	"context"
	"log/slog"

	audit "veritas/pkg/platform/audit"
	"veritas/pkg/platform/circuit"
	"veritas/pkg/requestcontext"
)

type Tracker struct {
	store   audit.Store
	sampler *Sampler
	breaker *circuit.Breaker
	metrics *Metrics
	logger  *slog.Logger
}

type Option func(*Tracker)

func WithSampler(s *Sampler) Option {
	return func(t *Tracker) {
		if s != nil {
			t.sampler = s
		}
	}
}

// WithBreaker guards the outbox so an outage sheds ops events instead of
// piling up failing inserts.
func WithBreaker(b *circuit.Breaker) Option {
	return func(t *Tracker) {
		if b != nil {
			t.breaker = b
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func New(store audit.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:   store,
		sampler: NewSampler(1),
		breaker: circuit.New("audit_ops", circuit.WithFailureThreshold(5)),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track writes event unless it is sampled out or the breaker is open.
// It reports whether the event was persisted.
func (t *Tracker) Track(ctx context.Context, event audit.Event) bool {
	if !t.sampler.Keep(event.Action) {
		t.count(func(m *Metrics) { m.Sampled.Inc() })
		return false
	}
	if !t.breaker.Allow() {
		t.count(func(m *Metrics) { m.BreakerDrops.Inc() })
		return false
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	event.Category = audit.CategoryOperations

	if err := t.store.Append(ctx, event); err != nil {
		_, change := t.breaker.RecordFailure()
		t.count(func(m *Metrics) {
			m.PersistErrors.Inc()
			if change.Opened {
				m.setBreaker(true)
			}
		})
		t.logger.DebugContext(ctx, "ops audit event dropped", "action", event.Action, "error", err)
		return false
	}
	if _, change := t.breaker.RecordSuccess(); change.Closed {
		t.count(func(m *Metrics) { m.setBreaker(false) })
	}
	t.count(func(m *Metrics) { m.Tracked.WithLabelValues(event.Action).Inc() })
	return true
}

func (t *Tracker) count(fn func(*Metrics)) {
	if t.metrics != nil {
		fn(t.metrics)
	}
}
