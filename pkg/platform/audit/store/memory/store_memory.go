package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	id "veritas/pkg/domain"
	audit "veritas/pkg/platform/audit"
)

// InMemoryStore keeps events and their outbox entries in process. It backs
// unit tests and deployments running without Postgres.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    map[id.UserID][]audit.Event
	outbox    []audit.OutboxEntry
	published map[uuid.UUID]time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:    make(map[id.UserID][]audit.Event),
		published: make(map[uuid.UUID]time.Time),
	}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	entry, err := audit.NewOutboxEntry(event, time.Now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.UserID] = append(s.events[event.UserID], event)
	s.outbox = append(s.outbox, entry)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[userID]...), nil
}

// FetchPending returns unpublished entries in insertion order.
func (s *InMemoryStore) FetchPending(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.OutboxEntry
	for _, e := range s.outbox {
		if _, done := s.published[e.ID]; done {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entryID := range ids {
		s.published[entryID] = at
	}
	return nil
}
