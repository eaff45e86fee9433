//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"veritas/internal/platform/config"
	"veritas/internal/platform/kafka"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/audit"
	"veritas/pkg/platform/audit/archive"
	auditconsumer "veritas/pkg/platform/audit/consumer"
	auditpg "veritas/pkg/platform/audit/store/postgres"
	"veritas/pkg/platform/audit/worker"
	"veritas/pkg/testutil/containers"
)

type ProducerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	brokers  []string
	topic    string
	security string
	producer *kafka.Producer
}

func TestProducerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerSuite))
}

func (s *ProducerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.brokers = mgr.GetRedpanda(s.T()).Brokers
	s.topic = "veritas.audit.test"
	s.security = "veritas.audit.security.test"

	var err error
	s.producer, err = kafka.NewProducer(config.KafkaConfig{
		Brokers:       s.brokers,
		AuditTopic:    s.topic,
		SecurityTopic: s.security,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.Require().NoError(s.producer.EnsureTopic(context.Background(), 1, 1))
}

func (s *ProducerSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *ProducerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox"))
}

func (s *ProducerSuite) TestEnsureTopicIsIdempotent() {
	s.NoError(s.producer.EnsureTopic(context.Background(), 1, 1))
	s.NoError(s.producer.Health(context.Background()))
}

func (s *ProducerSuite) TestOutboxRelayPublishesKeyedRecords() {
	ctx := context.Background()
	store := auditpg.New(s.postgres.DB)
	userID := id.NewUserID()

	s.Require().NoError(store.Append(ctx, audit.Event{
		Action:    string(audit.EventAttemptApproved),
		Timestamp: time.Now(),
		UserID:    userID,
		Subject:   id.NewAttemptID().String(),
		Status:    "approved",
	}))

	relay := worker.NewWorker(store, s.producer)
	n, err := relay.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = relay.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Zero(n, "published entries are not relayed twice")

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	var rec *kgo.Record
	for rec == nil {
		fetches := consumer.PollFetches(pollCtx)
		s.Require().NoError(pollCtx.Err(), "no record consumed")
		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Key) == userID.String() {
				rec = r
			}
		})
	}

	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal(string(audit.EventAttemptApproved), headers["event_type"])
	s.NotEmpty(headers["outbox_id"])

	var payload audit.Payload
	s.Require().NoError(json.Unmarshal(rec.Value, &payload))
	s.Equal(userID.String(), payload.UserID)
	s.Equal("approved", payload.Status)
}

func (s *ProducerSuite) TestSecurityEventsReachTheArchive() {
	ctx := context.Background()
	store := auditpg.New(s.postgres.DB)
	s.Require().NoError(store.Append(ctx, audit.Event{
		Action:    string(audit.EventCallbackRejected),
		Timestamp: time.Now(),
		Subject:   "vendor-callback",
		ClientIP:  "203.0.113.8",
	}))
	_, err := worker.NewWorker(store, s.producer).RelayOnce(ctx)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := archive.NewMemory()
	router := auditconsumer.NewRouter(logger, nil)
	router.Register(s.security, auditconsumer.NewSecurityHandler(sink, logger))

	c, err := kafka.NewConsumer(s.brokers, "archive-test", router.Topics(), logger)
	s.Require().NoError(err)
	defer c.Close()

	runCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	go func() { _ = c.Run(runCtx, router) }()

	s.Eventually(func() bool {
		n, _ := sink.Count(ctx, audit.CategorySecurity)
		return n == 1
	}, 15*time.Second, 100*time.Millisecond)
}
