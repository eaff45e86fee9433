package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

type CheckpointStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *CheckpointStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestCheckpointStoreSuite(t *testing.T) {
	suite.Run(t, new(CheckpointStoreSuite))
}

func (s *CheckpointStoreSuite) create(course id.CourseID, name string) *models.Checkpoint {
	cp, err := models.NewCheckpoint(course, name, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, cp))
	return cp
}

func (s *CheckpointStoreSuite) TestUniqueness() {
	s.create("course-a", "midterm")

	dup, err := models.NewCheckpoint("course-a", "midterm", time.Now())
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)

	s.Run("same name in another course is fine", func() {
		s.create("course-b", "midterm")
	})
}

func (s *CheckpointStoreSuite) TestLookup() {
	cp := s.create("course-a", "final")

	found, err := s.store.FindByCourseName(s.ctx, "course-a", "final")
	s.Require().NoError(err)
	s.Equal(cp.ID, found.ID)

	_, err = s.store.FindByCourseName(s.ctx, "course-a", "quiz")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *CheckpointStoreSuite) TestMembership() {
	midterm := s.create("course-a", "midterm")
	final := s.create("course-a", "final")
	attemptID := id.NewAttemptID()

	s.Require().NoError(s.store.AddAttempt(s.ctx, midterm.ID, attemptID))
	s.Require().NoError(s.store.AddAttempt(s.ctx, midterm.ID, attemptID))
	s.Require().NoError(s.store.AddAttempt(s.ctx, final.ID, attemptID))

	n, err := s.store.CountAttempts(s.ctx, midterm.ID)
	s.Require().NoError(err)
	s.Equal(1, n, "set semantics")

	list, err := s.store.ListForAttempt(s.ctx, attemptID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("final", list[0].Name)
	s.Equal("midterm", list[1].Name)

	s.Require().NoError(s.store.RemoveAttempt(s.ctx, midterm.ID, attemptID))
	n, err = s.store.CountAttempts(s.ctx, midterm.ID)
	s.Require().NoError(err)
	s.Zero(n)

	s.ErrorIs(s.store.AddAttempt(s.ctx, id.NewCheckpointID(), attemptID), sentinel.ErrNotFound)
}
