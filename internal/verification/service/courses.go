package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/audit"
	"veritas/pkg/requestcontext"
)

// maxWindowChecks bounds concurrent per-window lookups in UserIsReverifiedForAll.
const maxWindowChecks = 8

func (s *Service) CreateWindow(ctx context.Context, courseID id.CourseID, start, end time.Time) (*models.Window, error) {
	w, err := models.NewWindow(courseID, start, end, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.windows.Create(ctx, w); err != nil {
			return translate(err, "window")
		}
		return s.emit(ctx, audit.EventWindowCreated, audit.Event{
			UserID:   requestcontext.UserID(ctx),
			Subject:  w.ID.String(),
			CourseID: string(courseID),
		})
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) WindowsForCourse(ctx context.Context, courseID id.CourseID) ([]*models.Window, error) {
	windows, err := s.windows.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, translate(err, "window")
	}
	return windows, nil
}

// GetCheckpoint returns nil without error when the checkpoint does not exist.
func (s *Service) GetCheckpoint(ctx context.Context, courseID id.CourseID, name string) (*models.Checkpoint, error) {
	cp, err := s.checkpoints.FindByCourseName(ctx, courseID, name)
	if err != nil {
		err = translate(err, "checkpoint")
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return cp, nil
}

// CreateCheckpoint fails with CodeConflict when (course, name) exists.
func (s *Service) CreateCheckpoint(ctx context.Context, courseID id.CourseID, name string) (*models.Checkpoint, error) {
	cp, err := models.NewCheckpoint(courseID, name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkpoints.Create(ctx, cp); err != nil {
			return translate(err, "checkpoint")
		}
		return s.emit(ctx, audit.EventCheckpointCreated, audit.Event{
			UserID:   requestcontext.UserID(ctx),
			Subject:  cp.ID.String(),
			CourseID: string(courseID),
			Reason:   cp.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return cp, nil
}

func (s *Service) AddAttemptToCheckpoint(ctx context.Context, checkpointID id.CheckpointID, attemptID id.AttemptID) error {
	if err := s.checkpoints.AddAttempt(ctx, checkpointID, attemptID); err != nil {
		return translate(err, "checkpoint")
	}
	return nil
}

func (s *Service) RemoveAttemptFromCheckpoint(ctx context.Context, checkpointID id.CheckpointID, attemptID id.AttemptID) error {
	if err := s.checkpoints.RemoveAttempt(ctx, checkpointID, attemptID); err != nil {
		return translate(err, "checkpoint")
	}
	return nil
}

func (s *Service) CheckpointAttemptCount(ctx context.Context, checkpointID id.CheckpointID) (int, error) {
	n, err := s.checkpoints.CountAttempts(ctx, checkpointID)
	if err != nil {
		return 0, translate(err, "checkpoint")
	}
	return n, nil
}

func (s *Service) CheckpointsForAttempt(ctx context.Context, attemptID id.AttemptID) ([]*models.Checkpoint, error) {
	cps, err := s.checkpoints.ListForAttempt(ctx, attemptID)
	if err != nil {
		return nil, translate(err, "checkpoint")
	}
	return cps, nil
}

// RecordCheckpointSubmission links a submitted attempt to the named
// checkpoint and records the submission in the ledger at locationID.
func (s *Service) RecordCheckpointSubmission(ctx context.Context, userID id.UserID, courseID id.CourseID, name string, attemptID id.AttemptID, locationID string) (*models.Checkpoint, error) {
	cp, err := s.GetCheckpoint(ctx, courseID, name)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "checkpoint not found")
	}
	if _, err := s.loadOwned(ctx, userID, attemptID); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkpoints.AddAttempt(ctx, cp.ID, attemptID); err != nil {
			return translate(err, "checkpoint")
		}
		return s.AddVerificationStatus(ctx, cp, userID, models.LedgerSubmitted, locationID)
	})
	if err != nil {
		return nil, err
	}
	return cp, nil
}

// AddVerificationStatus appends one ledger entry.
func (s *Service) AddVerificationStatus(ctx context.Context, cp *models.Checkpoint, userID id.UserID, status models.LedgerStatus, locationID string) error {
	entry, err := models.NewStatusEntry(cp.ID, userID, status, locationID, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.Append(ctx, entry); err != nil {
			return translate(err, "status entry")
		}
		if s.metrics != nil {
			s.metrics.IncrementLedgerEntry(string(status))
		}
		return s.emit(ctx, audit.EventCheckpointStatusAdded, audit.Event{
			UserID:   userID,
			Subject:  cp.ID.String(),
			CourseID: string(cp.CourseID),
			Status:   string(status),
			Reason:   locationID,
		})
	})
}

// AddStatusFromCheckpoints appends status for every checkpoint, reusing the
// location of the latest entry for (checkpoint, user). Checkpoints without
// prior entries get an empty location.
func (s *Service) AddStatusFromCheckpoints(ctx context.Context, checkpoints []*models.Checkpoint, userID id.UserID, status models.LedgerStatus) error {
	if len(checkpoints) == 0 {
		return nil
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, cp := range checkpoints {
			location, _, err := s.ledger.LatestLocation(ctx, cp.ID, userID)
			if err != nil {
				return translate(err, "status entry")
			}
			if err := s.AddVerificationStatus(ctx, cp, userID, status, location); err != nil {
				return err
			}
		}
		return nil
	})
}

// StatusHistory returns the ledger for (checkpoint, user), oldest first.
func (s *Service) StatusHistory(ctx context.Context, checkpointID id.CheckpointID, userID id.UserID) ([]*models.StatusEntry, error) {
	entries, err := s.ledger.History(ctx, checkpointID, userID)
	if err != nil {
		return nil, translate(err, "status entry")
	}
	return entries, nil
}

// AddSkippedReverification fails with CodeConflict when the user already
// skipped a checkpoint in the course.
func (s *Service) AddSkippedReverification(ctx context.Context, cp *models.Checkpoint, userID id.UserID, courseID id.CourseID) (*models.SkipRecord, error) {
	rec, err := models.NewSkipRecord(cp.ID, userID, courseID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.skips.Create(ctx, rec); err != nil {
			return translate(err, "skip record")
		}
		return s.emit(ctx, audit.EventReverificationSkipped, audit.Event{
			UserID:   userID,
			Subject:  cp.ID.String(),
			CourseID: string(courseID),
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) UserSkippedReverification(ctx context.Context, courseID id.CourseID, userID id.UserID) (bool, error) {
	ok, err := s.skips.Exists(ctx, courseID, userID)
	if err != nil {
		return false, translate(err, "skip record")
	}
	return ok, nil
}

// UserIsReverifiedForAll reports whether the newest attempt in every window
// of the course is approved. A course without windows is trivially complete.
func (s *Service) UserIsReverifiedForAll(ctx context.Context, courseID id.CourseID, userID id.UserID) (bool, error) {
	windows, err := s.WindowsForCourse(ctx, courseID)
	if err != nil {
		return false, err
	}
	if len(windows) == 0 {
		return true, nil
	}

	approved := make([]bool, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWindowChecks)
	for i, w := range windows {
		windowID := w.ID
		g.Go(func() error {
			attempts, err := s.listWindow(gctx, userID, &windowID)
			if err != nil {
				return err
			}
			latest := models.MostRecent(attempts, nil)
			approved[i] = latest != nil && latest.Status == models.StatusApproved
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	for _, ok := range approved {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
