package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a consumed record, decoupled from the client library.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

const maxRetryBackoff = 30 * time.Second

// Consumer reads a set of topics as one consumer group. Offsets are
// committed only after the handler accepts a record; a failing record is
// retried with backoff and blocks its partition until it succeeds.
type Consumer struct {
	client  *kgo.Client
	logger  *slog.Logger
	backoff time.Duration
}

func NewConsumer(brokers []string, group string, topics []string, logger *slog.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if group == "" {
		return nil, errors.New("kafka: consumer group is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create consumer: %w", err)
	}
	return &Consumer{client: client, logger: logger, backoff: 250 * time.Millisecond}, nil
}

func toMessage(r *kgo.Record) *Message {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
	}
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.WarnContext(ctx, "kafka fetch error", "topic", topic, "partition", partition, "error", err)
		})

		var handled []*kgo.Record
		iter := fetches.RecordIter()
		for !iter.Done() {
			rec := iter.Next()
			if err := c.deliver(ctx, h, rec); err != nil {
				c.commit(context.WithoutCancel(ctx), handled)
				return err
			}
			handled = append(handled, rec)
		}
		c.commit(ctx, handled)
	}
}

func (c *Consumer) deliver(ctx context.Context, h Handler, rec *kgo.Record) error {
	wait := c.backoff
	for {
		err := h.Handle(ctx, toMessage(rec))
		if err == nil {
			return nil
		}
		c.logger.WarnContext(ctx, "kafka handler failed, retrying",
			"topic", rec.Topic,
			"partition", rec.Partition,
			"offset", rec.Offset,
			"retry_in", wait,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, maxRetryBackoff)
	}
}

func (c *Consumer) commit(ctx context.Context, records []*kgo.Record) {
	if len(records) == 0 {
		return
	}
	if err := c.client.CommitRecords(ctx, records...); err != nil {
		c.logger.WarnContext(ctx, "kafka offset commit failed", "count", len(records), "error", err)
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}
