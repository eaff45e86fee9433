// Package attempt persists verification attempts.
package attempt

import (
	"context"
	"sort"
	"sync"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

// InMemory is a map-backed store for tests and local development.
type InMemory struct {
	mu       sync.RWMutex
	attempts map[id.AttemptID]*models.Attempt
	seq      int64
}

func NewInMemory() *InMemory {
	return &InMemory{attempts: make(map[id.AttemptID]*models.Attempt)}
}

func clone(a *models.Attempt) *models.Attempt {
	c := *a
	if a.WindowID != nil {
		w := *a.WindowID
		c.WindowID = &w
	}
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		c.SubmittedAt = &t
	}
	return &c
}

func (s *InMemory) Create(_ context.Context, a *models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[a.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.attempts {
		if existing.ReceiptID == a.ReceiptID {
			return sentinel.ErrConflict
		}
	}
	s.seq++
	a.Seq = s.seq
	s.attempts[a.ID] = clone(a)
	return nil
}

func (s *InMemory) Update(_ context.Context, a *models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.attempts[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c := clone(a)
	c.CreatedAt = existing.CreatedAt
	c.Seq = existing.Seq
	c.UserID = existing.UserID
	c.WindowID = existing.WindowID
	s.attempts[a.ID] = c
	return nil
}

func (s *InMemory) FindByID(_ context.Context, attemptID id.AttemptID) (*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

func (s *InMemory) FindByReceipt(_ context.Context, receiptID string) (*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.attempts {
		if a.ReceiptID == receiptID {
			return clone(a), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListByUserWindow returns the user's attempts for windowID, newest first.
// A nil windowID selects original attempts.
func (s *InMemory) ListByUserWindow(_ context.Context, userID id.UserID, windowID *id.WindowID) ([]*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Attempt
	for _, a := range s.attempts {
		if a.UserID == userID && a.InWindow(windowID) {
			out = append(out, clone(a))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListByUser returns every attempt for the user across windows, newest first.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Attempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			out = append(out, clone(a))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// SetDisplay flips the banner flag on all of the user's attempts.
func (s *InMemory) SetDisplay(_ context.Context, userID id.UserID, display bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.UserID == userID {
			a.Display = display
		}
	}
	return nil
}

func (s *InMemory) Delete(_ context.Context, attemptID id.AttemptID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attemptID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.attempts, attemptID)
	return nil
}

func sortNewestFirst(attempts []*models.Attempt) {
	sort.Slice(attempts, func(i, j int) bool {
		return models.Newer(attempts[i], attempts[j])
	})
}
