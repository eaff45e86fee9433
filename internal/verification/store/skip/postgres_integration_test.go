//go:build integration

package skip_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritas/internal/verification/models"
	"veritas/internal/verification/store/checkpoint"
	"veritas/internal/verification/store/skip"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
	"veritas/pkg/testutil/containers"
)

const course id.CourseID = "course-v1:Org+C+1"

type PostgresStoreSuite struct {
	suite.Suite
	postgres    *containers.PostgresContainer
	store       *skip.PostgresStore
	checkpoints *checkpoint.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = skip.NewPostgres(s.postgres.DB)
	s.checkpoints = checkpoint.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(),
		"skipped_reverifications", "verification_status_ledger", "verification_checkpoint_attempts",
		"verification_checkpoints"))
}

func (s *PostgresStoreSuite) checkpoint(courseID id.CourseID, name string) *models.Checkpoint {
	cp, err := models.NewCheckpoint(courseID, name, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.checkpoints.Create(context.Background(), cp))
	return cp
}

func (s *PostgresStoreSuite) skip(cp *models.Checkpoint, userID id.UserID) error {
	r, err := models.NewSkipRecord(cp.ID, userID, cp.CourseID, time.Now())
	s.Require().NoError(err)
	return s.store.Create(context.Background(), r)
}

// A user skips at most once per course, whichever checkpoint they skip at.
func (s *PostgresStoreSuite) TestOneSkipPerUserAndCourse() {
	midterm := s.checkpoint(course, "midterm")
	final := s.checkpoint(course, "final")
	elsewhere := s.checkpoint("course-v1:Org+Other+1", "midterm")
	userID := id.NewUserID()

	s.Require().NoError(s.skip(midterm, userID))
	s.ErrorIs(s.skip(midterm, userID), sentinel.ErrConflict)
	s.ErrorIs(s.skip(final, userID), sentinel.ErrConflict)
	s.NoError(s.skip(midterm, id.NewUserID()), "other users are unaffected")
	s.NoError(s.skip(elsewhere, userID), "other courses are unaffected")
}

func (s *PostgresStoreSuite) TestConcurrentSkipsConflict() {
	cp := s.checkpoint(course, "midterm")
	userID := id.NewUserID()

	const goroutines = 10
	var wg sync.WaitGroup
	var created, conflicts atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := models.NewSkipRecord(cp.ID, userID, course, time.Now())
			if err != nil {
				return
			}
			switch err := s.store.Create(context.Background(), r); {
			case err == nil:
				created.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestExists() {
	ctx := context.Background()
	cp := s.checkpoint(course, "midterm")
	userID := id.NewUserID()

	exists, err := s.store.Exists(ctx, course, userID)
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.skip(cp, userID))

	exists, err = s.store.Exists(ctx, course, userID)
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.store.Exists(ctx, "course-v1:Org+Other+1", userID)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *PostgresStoreSuite) TestRejectsUnknownCheckpoint() {
	r, err := models.NewSkipRecord(id.NewCheckpointID(), id.NewUserID(), course, time.Now())
	s.Require().NoError(err)
	err = s.store.Create(context.Background(), r)
	s.Error(err)
	s.NotErrorIs(err, sentinel.ErrConflict)
}
