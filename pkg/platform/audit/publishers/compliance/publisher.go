// Package compliance writes verification audit events to the outbox before
// the surrounding operation commits. A failed write fails the operation.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	audit "veritas/pkg/platform/audit"
	"veritas/pkg/platform/middleware/metadata"
	"veritas/pkg/requestcontext"
)

var (
	errNoUser   = errors.New("audit event requires UserID")
	errNoAction = errors.New("audit event requires Action")
)

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New wraps an outbox-backed store. With the Postgres store the append joins
// the transaction carried by ctx.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// stamp fills request metadata the caller left blank.
func stamp(ctx context.Context, e *audit.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = requestcontext.Now(ctx)
	}
	if e.RequestID == "" {
		e.RequestID = requestcontext.RequestID(ctx)
	}
	if e.ClientIP == "" {
		e.ClientIP = requestcontext.ClientIP(ctx)
	}
	if ua := requestcontext.UserAgent(ctx); e.Device == "" && ua != "" {
		e.Device = metadata.DeviceLabel(ua)
	}
	if e.DeviceID == "" {
		e.DeviceID = requestcontext.DeviceID(ctx)
	}
	e.Category = audit.AuditEvent(e.Action).Category()
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	switch {
	case event.UserID.IsNil():
		return errNoUser
	case event.Action == "":
		return errNoAction
	}
	stamp(ctx, &event)

	started := time.Now()
	err := p.store.Append(ctx, event)
	if p.metrics != nil {
		p.metrics.record(event.Action, time.Since(started), err)
	}
	if err != nil {
		p.logger.ErrorContext(ctx, "audit outbox write failed",
			"action", event.Action,
			"user_id", event.UserID.String(),
			"subject", event.Subject,
			"error", err,
		)
		return fmt.Errorf("append audit event %s: %w", event.Action, err)
	}
	return nil
}
