// Package security publishes security audit events without blocking the
// request that raised them. Events are buffered and flushed to the outbox
// by a background loop.
package security

import (
	"context"
	"log/slog"
	"time"

	audit "veritas/pkg/platform/audit"
	"veritas/pkg/requestcontext"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

type Publisher struct {
	store     audit.Store
	buffer    *RingBuffer
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

type Option func(*Publisher)

func WithBuffer(b *RingBuffer) Option {
	return func(p *Publisher) {
		if b != nil {
			p.buffer = b
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:     store,
		buffer:    NewRingBuffer(0),
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps request metadata and buffers the event. It never blocks.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.DeviceID == "" {
		event.DeviceID = requestcontext.DeviceID(ctx)
	}
	if event.Severity == "" {
		event.Severity = audit.SeverityWarning
	}
	event.Category = audit.CategorySecurity
	p.buffer.Enqueue(event)
}

// Flush writes buffered events until the buffer is empty or the store
// fails. Unwritten events go back to the buffer for the next flush.
func (p *Publisher) Flush(ctx context.Context) (int, error) {
	written := 0
	for {
		batch := p.buffer.DequeueBatch(p.batchSize)
		if len(batch) == 0 {
			return written, nil
		}
		for i, e := range batch {
			if err := p.store.Append(ctx, e); err != nil {
				p.buffer.Requeue(batch[i:])
				return written, err
			}
			written++
		}
	}
}

// Run flushes on every tick and once more on shutdown.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if _, err := p.Flush(context.WithoutCancel(ctx)); err != nil {
				p.logger.Error("final security audit flush failed", "pending", p.buffer.Len(), "error", err)
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Flush(ctx); err != nil {
				p.logger.WarnContext(ctx, "security audit flush failed",
					"pending", p.buffer.Len(),
					"dropped", p.buffer.Dropped(),
					"error", err,
				)
			}
		}
	}
}
