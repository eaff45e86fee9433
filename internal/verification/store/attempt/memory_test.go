package attempt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

type AttemptStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *AttemptStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestAttemptStoreSuite(t *testing.T) {
	suite.Run(t, new(AttemptStoreSuite))
}

func (s *AttemptStoreSuite) newAttempt(userID id.UserID, windowID *id.WindowID, createdAt time.Time) *models.Attempt {
	a, err := models.NewAttempt(userID, windowID, createdAt)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, a))
	return a
}

func (s *AttemptStoreSuite) TestCreateAndFind() {
	userID := id.NewUserID()
	a := s.newAttempt(userID, nil, time.Now())
	s.Positive(a.Seq)

	s.Run("by id", func() {
		found, err := s.store.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Equal(a.ReceiptID, found.ReceiptID)
	})

	s.Run("by receipt", func() {
		found, err := s.store.FindByReceipt(s.ctx, a.ReceiptID)
		s.Require().NoError(err)
		s.Equal(a.ID, found.ID)
	})

	s.Run("unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewAttemptID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("duplicate receipt conflicts", func() {
		dup, err := models.NewAttempt(userID, nil, time.Now())
		s.Require().NoError(err)
		dup.ReceiptID = a.ReceiptID
		s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
	})
}

func (s *AttemptStoreSuite) TestUpdateKeepsIdentity() {
	a := s.newAttempt(id.NewUserID(), nil, time.Now())
	originalCreated := a.CreatedAt

	a.Status = models.StatusReady
	a.Name = "Frozen Name"
	a.CreatedAt = originalCreated.Add(time.Hour)
	s.Require().NoError(s.store.Update(s.ctx, a))

	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReady, found.Status)
	s.Equal("Frozen Name", found.Name)
	s.True(found.CreatedAt.Equal(originalCreated))

	missing, err := models.NewAttempt(id.NewUserID(), nil, time.Now())
	s.Require().NoError(err)
	s.ErrorIs(s.store.Update(s.ctx, missing), sentinel.ErrNotFound)
}

func (s *AttemptStoreSuite) TestListByUserWindow() {
	userID := id.NewUserID()
	windowID := id.NewWindowID()
	now := time.Now()

	older := s.newAttempt(userID, nil, now.Add(-time.Hour))
	tieA := s.newAttempt(userID, nil, now)
	tieB := s.newAttempt(userID, nil, now)
	windowed := s.newAttempt(userID, &windowID, now)
	s.newAttempt(id.NewUserID(), nil, now)

	originals, err := s.store.ListByUserWindow(s.ctx, userID, nil)
	s.Require().NoError(err)
	s.Require().Len(originals, 3)
	s.Equal(tieB.ID, originals[0].ID, "later seq wins a timestamp tie")
	s.Equal(tieA.ID, originals[1].ID)
	s.Equal(older.ID, originals[2].ID)

	inWindow, err := s.store.ListByUserWindow(s.ctx, userID, &windowID)
	s.Require().NoError(err)
	s.Require().Len(inWindow, 1)
	s.Equal(windowed.ID, inWindow[0].ID)

	all, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Len(all, 4)
}

func (s *AttemptStoreSuite) TestSetDisplayAndDelete() {
	userID := id.NewUserID()
	a := s.newAttempt(userID, nil, time.Now())
	other := s.newAttempt(id.NewUserID(), nil, time.Now())

	s.Require().NoError(s.store.SetDisplay(s.ctx, userID, false))

	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.False(found.Display)

	untouched, err := s.store.FindByID(s.ctx, other.ID)
	s.Require().NoError(err)
	s.True(untouched.Display)

	s.Require().NoError(s.store.Delete(s.ctx, a.ID))
	_, err = s.store.FindByID(s.ctx, a.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, a.ID), sentinel.ErrNotFound)
}
