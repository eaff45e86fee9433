package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/audit"
	"veritas/pkg/requestcontext"
)

// Vendor result values delivered to HandleResult.
const (
	ResultPass       = "PASS"
	ResultFail       = "FAIL"
	ResultSystemFail = "SYSTEM FAIL"
)

// ResultInput is a decoded vendor callback.
type ResultInput struct {
	ReceiptID   string
	Result      string
	Reason      string
	MessageType string
}

// CreateAttempt starts a new attempt. Reverification attempts reuse the
// photo ID of the user's approved original verification.
func (s *Service) CreateAttempt(ctx context.Context, userID id.UserID, windowID *id.WindowID) (*models.Attempt, error) {
	if windowID != nil {
		if _, err := s.windows.FindByID(ctx, *windowID); err != nil {
			return nil, translate(err, "window")
		}
	}

	a, err := models.NewAttempt(userID, windowID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if windowID != nil {
		if err := s.fetchPhotoIDImage(ctx, a); err != nil {
			return nil, err
		}
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.attempts.Create(ctx, a); err != nil {
			return translate(err, "attempt")
		}
		return s.emit(ctx, audit.EventAttemptCreated, audit.Event{
			UserID:  userID,
			Subject: a.ID.String(),
			Status:  string(a.Status),
			Reason:  windowLabel(windowID),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementAttemptCreated()
	}
	s.invalidate(ctx, userID)
	return a, nil
}

func (s *Service) fetchPhotoIDImage(ctx context.Context, a *models.Attempt) error {
	original, err := s.OriginalVerification(ctx, a.UserID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil
		}
		return err
	}
	if original.PhotoIDKey == "" {
		return nil
	}
	a.PhotoIDImageURL = original.PhotoIDImageURL
	a.PhotoIDKey = original.PhotoIDKey
	return nil
}

// loadOwned returns the attempt if it belongs to userID. Staff may act on
// any attempt. Foreign attempts read as not found.
func (s *Service) loadOwned(ctx context.Context, userID id.UserID, attemptID id.AttemptID) (*models.Attempt, error) {
	a, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, translate(err, "attempt")
	}
	if a.UserID != userID && !requestcontext.IsStaff(ctx) {
		return nil, dErrors.New(dErrors.CodeNotFound, "attempt not found")
	}
	return a, nil
}

// UploadPhotos seals and stores the face photo and, unless the attempt
// already carries one, the photo ID.
func (s *Service) UploadPhotos(ctx context.Context, userID id.UserID, attemptID id.AttemptID, face, photoID []byte) (*models.Attempt, error) {
	if s.sealer == nil || s.photos == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "photo uploads are not configured")
	}
	a, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusCreated {
		return nil, dErrors.New(dErrors.CodeInvalidState, "photos can only be attached before the attempt is ready")
	}
	if len(face) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "face_image is required")
	}
	if len(photoID) == 0 && a.PhotoIDImageURL == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "photo_id_image is required")
	}

	sealedFace, err := s.sealer.SealFace(face)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encrypt face image")
	}
	faceKey := "verification/" + a.ReceiptID + "/face"
	if err := s.photos.Put(ctx, faceKey, sealedFace); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store face image")
	}
	a.FaceImageURL = s.photos.URL(faceKey)

	if len(photoID) > 0 {
		sealedID, wrappedKey, err := s.sealer.SealPhotoID(photoID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encrypt photo id image")
		}
		idKey := "verification/" + a.ReceiptID + "/photo_id"
		if err := s.photos.Put(ctx, idKey, sealedID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store photo id image")
		}
		a.PhotoIDImageURL = s.photos.URL(idKey)
		a.PhotoIDKey = wrappedKey
	}
	a.UpdatedAt = requestcontext.Now(ctx)

	if err := s.attempts.Update(ctx, a); err != nil {
		return nil, translate(err, "attempt")
	}
	return a, nil
}

// MarkReady freezes the user's current display name onto the attempt.
func (s *Service) MarkReady(ctx context.Context, userID id.UserID, attemptID id.AttemptID) (*models.Attempt, error) {
	a, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if a.Status == models.StatusCreated && (a.FaceImageURL == "" || a.PhotoIDImageURL == "") {
		return nil, dErrors.New(dErrors.CodeValidation, "photos must be uploaded before the attempt is ready")
	}

	name, err := s.profiles.DisplayName(ctx, a.UserID)
	if err != nil {
		return nil, translate(err, "profile")
	}
	if err := a.MarkReady(name, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.attempts.Update(ctx, a); err != nil {
			return translate(err, "attempt")
		}
		return s.emit(ctx, audit.EventAttemptReady, audit.Event{
			UserID:  a.UserID,
			Subject: a.ID.String(),
			Status:  string(a.Status),
		})
	})
	if err != nil {
		return nil, err
	}
	s.countTransition(a.Status)
	s.invalidate(ctx, a.UserID)
	return a, nil
}

// Submit sends a ready attempt to the vendor. Vendor failures leave the
// attempt in must_retry and are not returned as errors.
func (s *Service) Submit(ctx context.Context, userID id.UserID, attemptID id.AttemptID) (*models.Attempt, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Submit")
	defer span.End()

	a, err := s.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("verification.attempt_id", a.ID.String()))

	start := time.Now()
	if err := a.Submit(ctx, s.submitter, requestcontext.Now(ctx)); err != nil {
		span.SetStatus(codes.Error, "invalid transition")
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveSubmit(start, string(a.Status))
	}

	event := audit.EventAttemptSubmitted
	if a.Status == models.StatusMustRetry {
		event = audit.EventAttemptMustRetry
		span.SetAttributes(attribute.String("verification.error", a.ErrorMsg))
		s.logger.WarnContext(ctx, "verification submission failed",
			"attempt_id", a.ID.String(),
			"receipt_id", a.ReceiptID,
			"error", a.ErrorMsg,
		)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.attempts.Update(ctx, a); err != nil {
			return translate(err, "attempt")
		}
		return s.emit(ctx, event, audit.Event{
			UserID:  a.UserID,
			Subject: a.ID.String(),
			Status:  string(a.Status),
		})
	})
	if err != nil {
		return nil, err
	}
	s.countTransition(a.Status)
	s.invalidate(ctx, a.UserID)
	return a, nil
}

// Approve is a manual review approval.
func (s *Service) Approve(ctx context.Context, attemptID id.AttemptID, reviewer string) (*models.Attempt, error) {
	a, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, translate(err, "attempt")
	}
	changed, err := a.Approve(reviewer, "", requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.recordDecision(ctx, a, changed, models.LedgerApproved, audit.EventAttemptApproved, reviewer); err != nil {
		return nil, err
	}
	return a, nil
}

// Deny is a manual review denial.
func (s *Service) Deny(ctx context.Context, attemptID id.AttemptID, errorMsg, errorCode, reviewer string) (*models.Attempt, error) {
	a, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, translate(err, "attempt")
	}
	changed, err := a.Deny(errorMsg, errorCode, reviewer, "", requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.recordDecision(ctx, a, changed, models.LedgerDenied, audit.EventAttemptDenied, reviewer); err != nil {
		return nil, err
	}
	return a, nil
}

// HandleResult applies a vendor callback. Repeated callbacks for an
// already decided attempt change nothing.
func (s *Service) HandleResult(ctx context.Context, in ResultInput) (*models.Attempt, error) {
	ctx, span := s.tracer.Start(ctx, "verification.HandleResult")
	defer span.End()
	span.SetAttributes(
		attribute.String("verification.receipt_id", in.ReceiptID),
		attribute.String("verification.result", in.Result),
	)

	a, err := s.attempts.FindByReceipt(ctx, in.ReceiptID)
	if err != nil {
		return nil, translate(err, "attempt")
	}

	now := requestcontext.Now(ctx)
	var (
		changed bool
		ledger  models.LedgerStatus
		event   audit.AuditEvent
	)
	switch strings.ToUpper(strings.TrimSpace(in.Result)) {
	case ResultPass:
		changed, err = a.Approve("", s.reviewingService, now)
		ledger, event = models.LedgerApproved, audit.EventAttemptApproved
	case ResultFail:
		changed, err = a.Deny(in.Reason, in.MessageType, "", s.reviewingService, now)
		ledger, event = models.LedgerDenied, audit.EventAttemptDenied
	case ResultSystemFail:
		changed, err = a.SystemError(in.Reason, in.MessageType, s.reviewingService, now)
		ledger, event = models.LedgerError, audit.EventAttemptSystemError
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "unknown result "+in.Result)
	}
	if err != nil {
		span.SetStatus(codes.Error, "invalid transition")
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementResult(strings.ToLower(strings.ReplaceAll(in.Result, " ", "_")))
	}

	if err := s.recordDecision(ctx, a, changed, ledger, event, s.reviewingService); err != nil {
		return nil, err
	}
	return a, nil
}

// recordDecision persists a review outcome and stamps the ledger for every
// checkpoint holding the attempt, all in one transaction.
func (s *Service) recordDecision(ctx context.Context, a *models.Attempt, changed bool, status models.LedgerStatus, event audit.AuditEvent, actor string) error {
	if !changed {
		return nil
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.attempts.Update(ctx, a); err != nil {
			return translate(err, "attempt")
		}
		checkpoints, err := s.checkpoints.ListForAttempt(ctx, a.ID)
		if err != nil {
			return translate(err, "checkpoint")
		}
		if err := s.AddStatusFromCheckpoints(ctx, checkpoints, a.UserID, status); err != nil {
			return err
		}
		return s.emit(ctx, event, audit.Event{
			UserID:  a.UserID,
			Subject: a.ID.String(),
			Status:  string(a.Status),
			Reason:  a.ErrorCode,
			ActorID: actor,
		})
	})
	if err != nil {
		return err
	}
	s.countTransition(a.Status)
	s.invalidate(ctx, a.UserID)
	return nil
}

// DeleteAttempt removes an attempt and its checkpoint links. Ledger rows are
// history and stay.
func (s *Service) DeleteAttempt(ctx context.Context, attemptID id.AttemptID) error {
	a, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return translate(err, "attempt")
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		checkpoints, err := s.checkpoints.ListForAttempt(ctx, a.ID)
		if err != nil {
			return translate(err, "checkpoint")
		}
		for _, cp := range checkpoints {
			if err := s.checkpoints.RemoveAttempt(ctx, cp.ID, a.ID); err != nil {
				return translate(err, "checkpoint")
			}
		}
		if err := s.attempts.Delete(ctx, a.ID); err != nil {
			return translate(err, "attempt")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, a.UserID)
	return nil
}
