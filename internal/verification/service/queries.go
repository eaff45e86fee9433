package service

import (
	"context"
	"time"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/audit"
	"veritas/pkg/requestcontext"
)

func (s *Service) listWindow(ctx context.Context, userID id.UserID, windowID *id.WindowID) ([]*models.Attempt, error) {
	attempts, err := s.attempts.ListByUserWindow(ctx, userID, windowID)
	if err != nil {
		return nil, translate(err, "attempt")
	}
	return attempts, nil
}

// ActiveForUser returns the newest attempt for (user, window) that has at
// least reached ready, or nil.
func (s *Service) ActiveForUser(ctx context.Context, userID id.UserID, windowID *id.WindowID) (*models.Attempt, error) {
	attempts, err := s.listWindow(ctx, userID, windowID)
	if err != nil {
		return nil, err
	}
	return models.MostRecent(attempts, func(a *models.Attempt) bool {
		return a.Status.IsActive()
	}), nil
}

// UserIsVerified reports whether a non-expired approved attempt exists.
func (s *Service) UserIsVerified(ctx context.Context, userID id.UserID, windowID *id.WindowID) (bool, error) {
	attempts, err := s.listWindow(ctx, userID, windowID)
	if err != nil {
		return false, err
	}
	now := requestcontext.Now(ctx)
	a := models.MostRecent(attempts, func(a *models.Attempt) bool {
		return a.Status == models.StatusApproved && !a.IsExpired(now, s.validity)
	})
	return a != nil, nil
}

func (s *Service) UserHasValidOrPending(ctx context.Context, userID id.UserID, windowID *id.WindowID) (bool, error) {
	attempts, err := s.listWindow(ctx, userID, windowID)
	if err != nil {
		return false, err
	}
	now := requestcontext.Now(ctx)
	a := models.MostRecent(attempts, func(a *models.Attempt) bool {
		return a.Status.IsValidOrPending() && !a.IsExpired(now, s.validity)
	})
	return a != nil, nil
}

// UserStatus summarises (user, window) for display. Results are cached until
// the user's next write.
func (s *Service) UserStatus(ctx context.Context, userID id.UserID, windowID *id.WindowID) (models.UserStatus, error) {
	var (
		gen       uint64
		cacheable bool
	)
	if s.cache != nil {
		status, g, ok, err := s.cache.Get(ctx, userID, windowID)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "status cache read failed", "user_id", userID.String(), "error", err)
		case ok:
			return status, nil
		default:
			gen, cacheable = g, true
		}
	}

	attempts, err := s.listWindow(ctx, userID, windowID)
	if err != nil {
		return models.UserStatus{}, err
	}
	status := models.ComputeUserStatus(attempts, requestcontext.Now(ctx), s.validity, s.platformName)

	// The cache TTL bounds how long a clock-driven expiry can go unnoticed.
	if cacheable {
		if err := s.cache.Set(ctx, userID, windowID, gen, status); err != nil {
			s.logger.WarnContext(ctx, "status cache write failed", "user_id", userID.String(), "error", err)
		}
	}
	return status, nil
}

// OriginalVerification returns the user's newest window-less attempt,
// whatever its status.
func (s *Service) OriginalVerification(ctx context.Context, userID id.UserID) (*models.Attempt, error) {
	attempts, err := s.listWindow(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	a := models.MostRecent(attempts, nil)
	if a == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no original verification")
	}
	return a, nil
}

// VerificationForDeadline picks the approved attempt, across all windows,
// whose validity covers deadline. A nil deadline returns the newest one.
func (s *Service) VerificationForDeadline(ctx context.Context, userID id.UserID, deadline *time.Time) (*models.Attempt, error) {
	attempts, err := s.attempts.ListByUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "attempt")
	}
	candidates := make([]*models.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if a.Status == models.StatusApproved {
			candidates = append(candidates, a)
		}
	}
	return models.VerificationForDatetime(deadline, candidates, s.validity), nil
}

// DisplayStatus reports whether the reverification banner is still shown
// for (user, window).
func (s *Service) DisplayStatus(ctx context.Context, userID id.UserID, windowID *id.WindowID) (bool, error) {
	attempts, err := s.listWindow(ctx, userID, windowID)
	if err != nil {
		return false, err
	}
	latest := models.MostRecent(attempts, nil)
	return latest != nil && latest.Display, nil
}

// DisplayOff dismisses the banner on every attempt the user has.
func (s *Service) DisplayOff(ctx context.Context, userID id.UserID) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.attempts.SetDisplay(ctx, userID, false); err != nil {
			return translate(err, "attempt")
		}
		return s.emit(ctx, audit.EventReverificationBannerOff, audit.Event{UserID: userID})
	})
}
