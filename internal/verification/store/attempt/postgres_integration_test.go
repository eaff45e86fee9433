//go:build integration

package attempt_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritas/internal/verification/models"
	"veritas/internal/verification/store/attempt"
	"veritas/internal/verification/store/window"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
	txcontext "veritas/pkg/platform/tx"
	"veritas/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *attempt.PostgresStore
	windows  *window.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = attempt.NewPostgres(s.postgres.DB)
	s.windows = window.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"verification_checkpoint_attempts", "verification_attempts", "verification_windows")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) create(userID id.UserID, windowID *id.WindowID, createdAt time.Time) *models.Attempt {
	a, err := models.NewAttempt(userID, windowID, createdAt)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), a))
	return a
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	w, err := models.NewWindow("course-v1:Org+X+2026", now, now.Add(72*time.Hour), now)
	s.Require().NoError(err)
	s.Require().NoError(s.windows.Create(ctx, w))

	a := s.create(id.NewUserID(), &w.ID, now)
	s.Positive(a.Seq)

	a.Status = models.StatusSubmitted
	a.Name = "Clyde Ƴ"
	a.PhotoIDKey = "wrapped"
	a.SubmittedAt = &now
	s.Require().NoError(s.store.Update(ctx, a))

	found, err := s.store.FindByReceipt(ctx, a.ReceiptID)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, found.Status)
	s.Equal("Clyde Ƴ", found.Name)
	s.Require().NotNil(found.WindowID)
	s.Equal(w.ID, *found.WindowID)
	s.Require().NotNil(found.SubmittedAt)
	s.True(found.SubmittedAt.Equal(now))
	s.Equal(a.Seq, found.Seq)
}

func (s *PostgresStoreSuite) TestOrderingWithTimestampTies() {
	ctx := context.Background()
	userID := id.NewUserID()
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := s.create(userID, nil, now)
	second := s.create(userID, nil, now)

	list, err := s.store.ListByUserWindow(ctx, userID, nil)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(second.ID, list[0].ID)
	s.Equal(first.ID, list[1].ID)
}

func (s *PostgresStoreSuite) TestConcurrentCreatesGetDistinctSeq() {
	userID := id.NewUserID()
	const n = 20
	var wg sync.WaitGroup
	seqs := make(chan int64, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := models.NewAttempt(userID, nil, time.Now())
			if err != nil {
				return
			}
			if err := s.store.Create(context.Background(), a); err == nil {
				seqs <- a.Seq
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := map[int64]bool{}
	for seq := range seqs {
		s.False(seen[seq])
		seen[seq] = true
	}
	s.Len(seen, n)
}

func (s *PostgresStoreSuite) TestUpdateInsideTransactionRollsBack() {
	ctx := context.Background()
	a := s.create(id.NewUserID(), nil, time.Now())

	runner := txcontext.NewRunner(s.postgres.DB)
	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		a.Status = models.StatusReady
		if err := s.store.Update(ctx, a); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	})
	s.ErrorIs(err, sentinel.ErrInvalidState)

	found, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCreated, found.Status)
}
