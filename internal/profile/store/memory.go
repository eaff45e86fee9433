// Package store persists user profiles.
package store

import (
	"context"
	"sync"

	"veritas/internal/profile/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	profiles map[id.UserID]models.Profile
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[id.UserID]models.Profile)}
}

// Save inserts or replaces the profile. Usernames are unique.
func (s *InMemory) Save(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, existing := range s.profiles {
		if userID != p.UserID && existing.Username == p.Username {
			return sentinel.ErrConflict
		}
	}
	s.profiles[p.UserID] = *p
	return nil
}

func (s *InMemory) FindByUserID(_ context.Context, userID id.UserID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}
