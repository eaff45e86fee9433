package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "veritas/pkg/platform/audit"
)

const (
	defaultBatchSize = 100
	defaultInterval  = 2 * time.Second
)

// Sink receives outbox entries, typically a Kafka producer.
type Sink interface {
	Publish(ctx context.Context, entries []audit.OutboxEntry) error
}

// Worker relays pending outbox entries to a Sink and marks them published.
// Delivery is at-least-once: a crash between Publish and MarkPublished
// republishes the batch, and consumers deduplicate on the payload id.
type Worker struct {
	outbox    audit.Outbox
	sink      Sink
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func NewWorker(outbox audit.Outbox, sink Sink, opts ...Option) *Worker {
	w := &Worker{
		outbox:    outbox,
		sink:      sink,
		logger:    slog.Default(),
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls the outbox until ctx is cancelled. Relay errors are logged and
// retried on the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := w.RelayOnce(ctx)
				if err != nil {
					w.logger.ErrorContext(ctx, "audit outbox relay failed", "error", err)
					break
				}
				if n < w.batchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes a single batch and returns how many entries it relayed.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	entries, err := w.outbox.FetchPending(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if err := w.sink.Publish(ctx, entries); err != nil {
		return 0, err
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := w.outbox.MarkPublished(ctx, ids, time.Now()); err != nil {
		return 0, err
	}
	w.logger.DebugContext(ctx, "audit outbox batch relayed", "count", len(entries))
	return len(entries), nil
}
