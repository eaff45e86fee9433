// Package checkpoint persists course checkpoints and their attempt membership.
package checkpoint

import (
	"context"
	"sort"
	"sync"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

type courseName struct {
	course id.CourseID
	name   string
}

type InMemory struct {
	mu          sync.RWMutex
	checkpoints map[id.CheckpointID]models.Checkpoint
	byName      map[courseName]id.CheckpointID
	members     map[id.CheckpointID]map[id.AttemptID]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{
		checkpoints: make(map[id.CheckpointID]models.Checkpoint),
		byName:      make(map[courseName]id.CheckpointID),
		members:     make(map[id.CheckpointID]map[id.AttemptID]struct{}),
	}
}

func (s *InMemory) Create(_ context.Context, cp *models.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := courseName{cp.CourseID, cp.Name}
	if _, ok := s.byName[key]; ok {
		return sentinel.ErrConflict
	}
	s.checkpoints[cp.ID] = *cp
	s.byName[key] = cp.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, checkpointID id.CheckpointID) (*models.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[checkpointID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &cp, nil
}

func (s *InMemory) FindByCourseName(_ context.Context, courseID id.CourseID, name string) (*models.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cpID, ok := s.byName[courseName{courseID, name}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := s.checkpoints[cpID]
	return &cp, nil
}

// AddAttempt is idempotent: adding a member twice keeps one membership.
func (s *InMemory) AddAttempt(_ context.Context, checkpointID id.CheckpointID, attemptID id.AttemptID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checkpoints[checkpointID]; !ok {
		return sentinel.ErrNotFound
	}
	set, ok := s.members[checkpointID]
	if !ok {
		set = make(map[id.AttemptID]struct{})
		s.members[checkpointID] = set
	}
	set[attemptID] = struct{}{}
	return nil
}

func (s *InMemory) RemoveAttempt(_ context.Context, checkpointID id.CheckpointID, attemptID id.AttemptID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members[checkpointID], attemptID)
	return nil
}

func (s *InMemory) CountAttempts(_ context.Context, checkpointID id.CheckpointID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members[checkpointID]), nil
}

// ListForAttempt returns every checkpoint holding attemptID ordered by name.
func (s *InMemory) ListForAttempt(_ context.Context, attemptID id.AttemptID) ([]*models.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Checkpoint
	for cpID, set := range s.members {
		if _, ok := set[attemptID]; ok {
			cp := s.checkpoints[cpID]
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CourseID != out[j].CourseID {
			return out[i].CourseID < out[j].CourseID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
