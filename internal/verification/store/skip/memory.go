// Package skip persists skipped reverification records.
package skip

import (
	"context"
	"sync"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

type userCourse struct {
	user   id.UserID
	course id.CourseID
}

// InMemory keys records by (user, course); a second skip in the same course
// conflicts regardless of checkpoint.
type InMemory struct {
	mu      sync.RWMutex
	records map[userCourse]models.SkipRecord
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[userCourse]models.SkipRecord)}
}

func (s *InMemory) Create(_ context.Context, r *models.SkipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userCourse{r.UserID, r.CourseID}
	if _, ok := s.records[key]; ok {
		return sentinel.ErrConflict
	}
	s.records[key] = *r
	return nil
}

func (s *InMemory) Exists(_ context.Context, courseID id.CourseID, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[userCourse{userID, courseID}]
	return ok, nil
}
