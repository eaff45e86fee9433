// Package window persists course reverification windows.
package window

import (
	"context"
	"sort"
	"sync"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	windows map[id.WindowID]models.Window
}

func NewInMemory() *InMemory {
	return &InMemory{windows: make(map[id.WindowID]models.Window)}
}

func (s *InMemory) Create(_ context.Context, w *models.Window) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.windows[w.ID]; ok {
		return sentinel.ErrConflict
	}
	s.windows[w.ID] = *w
	return nil
}

func (s *InMemory) FindByID(_ context.Context, windowID id.WindowID) (*models.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[windowID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &w, nil
}

// ListByCourse returns the course's windows ordered by start date.
func (s *InMemory) ListByCourse(_ context.Context, courseID id.CourseID) ([]*models.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Window
	for _, w := range s.windows {
		if w.CourseID == courseID {
			w := w
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}
