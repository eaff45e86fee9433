// Package kafka publishes audit outbox entries to Kafka (or Redpanda) and
// reads them back for archiving.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"veritas/internal/platform/config"
	audit "veritas/pkg/platform/audit"
)

// Producer implements worker.Sink over a franz-go client. Entries are routed
// to a topic by the category of their event type.
type Producer struct {
	client *kgo.Client
	topics map[audit.EventCategory]string
	logger *slog.Logger
}

// NewProducer connects to the configured brokers. Records are keyed by the
// outbox aggregate id so one user's events stay ordered within a partition.
func NewProducer(cfg config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.AuditTopic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	return &Producer{client: client, topics: Topics(cfg), logger: logger}, nil
}

// Topics maps each audit category to its topic. Categories without a
// dedicated topic share the compliance topic.
func Topics(cfg config.KafkaConfig) map[audit.EventCategory]string {
	topics := map[audit.EventCategory]string{
		audit.CategoryCompliance: cfg.AuditTopic,
		audit.CategoryOperations: cfg.OpsTopic,
		audit.CategorySecurity:   cfg.SecurityTopic,
	}
	for c, t := range topics {
		if t == "" {
			topics[c] = cfg.AuditTopic
		}
	}
	return topics
}

func (p *Producer) topicFor(eventType string) string {
	return p.topics[audit.AuditEvent(eventType).Category()]
}

// EnsureTopic creates the audit topics that do not exist yet.
func (p *Producer) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	var names []string
	for _, t := range p.topics {
		if !slices.Contains(names, t) {
			names = append(names, t)
		}
	}
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, names...)
	if err != nil {
		return fmt.Errorf("kafka: create topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("kafka: create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Publish produces every entry and waits for acknowledgement.
func (p *Producer) Publish(ctx context.Context, entries []audit.OutboxEntry) error {
	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, &kgo.Record{
			Topic: p.topicFor(e.EventType),
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(e.EventType)},
				{Key: "outbox_id", Value: []byte(e.ID.String())},
			},
		})
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce: %w", err)
	}
	return nil
}

// Health pings the brokers.
func (p *Producer) Health(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Producer) Close() {
	p.client.Close()
}
