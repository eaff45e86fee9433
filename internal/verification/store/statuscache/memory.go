package statuscache

import (
	"context"
	"sync"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
)

type userEntries struct {
	gen      uint64
	byWindow map[string]models.UserStatus
}

// InMemory is a process-local cache without expiry, for tests and single-node dev.
type InMemory struct {
	mu    sync.RWMutex
	users map[id.UserID]*userEntries
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[id.UserID]*userEntries)}
}

func (c *InMemory) Get(_ context.Context, userID id.UserID, windowID *id.WindowID) (models.UserStatus, uint64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[userID]
	if !ok {
		return models.UserStatus{}, 0, false, nil
	}
	st, ok := u.byWindow[field(windowID)]
	return st, u.gen, ok, nil
}

func (c *InMemory) Set(_ context.Context, userID id.UserID, windowID *id.WindowID, gen uint64, status models.UserStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.user(userID)
	if u.gen != gen {
		return nil
	}
	u.byWindow[field(windowID)] = status
	return nil
}

func (c *InMemory) Invalidate(_ context.Context, userID id.UserID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.user(userID)
	u.gen++
	clear(u.byWindow)
	return nil
}

func (c *InMemory) user(userID id.UserID) *userEntries {
	u, ok := c.users[userID]
	if !ok {
		u = &userEntries{byWindow: make(map[string]models.UserStatus)}
		c.users[userID] = u
	}
	return u
}
