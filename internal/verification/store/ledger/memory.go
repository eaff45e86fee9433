// Package ledger persists the append-only verification status ledger.
package ledger

import (
	"context"
	"sync"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
)

type InMemory struct {
	mu      sync.RWMutex
	entries []models.StatusEntry
	seq     int64
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, e *models.StatusEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e.Seq = s.seq
	s.entries = append(s.entries, *e)
	return nil
}

// LatestLocation returns the location of the newest entry for (checkpoint,
// user). ok is false when the pair has no history.
func (s *InMemory) LatestLocation(_ context.Context, checkpointID id.CheckpointID, userID id.UserID) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.CheckpointID == checkpointID && e.UserID == userID {
			return e.LocationID, true, nil
		}
	}
	return "", false, nil
}

// History returns entries for (checkpoint, user) oldest first.
func (s *InMemory) History(_ context.Context, checkpointID id.CheckpointID, userID id.UserID) ([]*models.StatusEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.StatusEntry
	for _, e := range s.entries {
		if e.CheckpointID == checkpointID && e.UserID == userID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}
