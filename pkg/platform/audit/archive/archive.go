// Package archive keeps the consumed audit stream for review. Records are
// keyed by the payload id, so redelivered messages are stored once.
package archive

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	id "veritas/pkg/domain"
	audit "veritas/pkg/platform/audit"
)

type Record struct {
	EventID    uuid.UUID           `json:"event_id"`
	Category   audit.EventCategory `json:"category"`
	Action     string              `json:"action"`
	UserID     *id.UserID          `json:"user_id,omitempty"`
	Subject    string              `json:"subject,omitempty"`
	CourseID   string              `json:"course_id,omitempty"`
	Status     string              `json:"status,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	RequestID  string              `json:"request_id,omitempty"`
	ActorID    string              `json:"actor_id,omitempty"`
	ClientIP   string              `json:"client_ip,omitempty"`
	DeviceID   string              `json:"device_id,omitempty"`
	Severity   string              `json:"severity,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// Memory is the in-process archive.
type Memory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[uuid.UUID]Record)}
}

// Append stores r and reports false when the event was already archived.
func (m *Memory) Append(_ context.Context, r Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.EventID]; ok {
		return false, nil
	}
	m.records[r.EventID] = r
	return true, nil
}

// ListByUser returns a user's records, newest first.
func (m *Memory) ListByUser(_ context.Context, userID id.UserID, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.records {
		if r.UserID != nil && *r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Count(_ context.Context, category audit.EventCategory) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.records {
		if r.Category == category {
			n++
		}
	}
	return n, nil
}
