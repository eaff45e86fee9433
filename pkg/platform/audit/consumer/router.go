// Package consumer archives the audit stream read back from Kafka. Each
// topic has its own handler with its own tolerance for bad input.
package consumer

import (
	"context"
	"log/slog"

	"veritas/internal/platform/kafka"
)

// TopicHandler handles the messages of one topic.
type TopicHandler interface {
	Handle(ctx context.Context, msg *kafka.Message) error
}

// Router dispatches messages by topic. Messages for unknown topics go to the
// fallback, or are committed and dropped when there is none.
type Router struct {
	handlers map[string]TopicHandler
	fallback TopicHandler
	logger   *slog.Logger
}

func NewRouter(logger *slog.Logger, fallback TopicHandler) *Router {
	return &Router{
		handlers: make(map[string]TopicHandler),
		fallback: fallback,
		logger:   logger,
	}
}

func (r *Router) Register(topic string, h TopicHandler) {
	r.handlers[topic] = h
}

// Topics lists the registered topics, for subscribing the consumer.
func (r *Router) Topics() []string {
	topics := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		topics = append(topics, t)
	}
	return topics
}

func (r *Router) Handle(ctx context.Context, msg *kafka.Message) error {
	if h, ok := r.handlers[msg.Topic]; ok {
		return h.Handle(ctx, msg)
	}
	if r.fallback != nil {
		return r.fallback.Handle(ctx, msg)
	}
	r.logger.WarnContext(ctx, "no handler for topic, skipping message",
		"topic", msg.Topic,
		"offset", msg.Offset,
	)
	return nil
}
