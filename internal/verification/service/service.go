package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	verificationmetrics "veritas/internal/verification/metrics"
	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/audit"
	"veritas/pkg/platform/sentinel"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks veritas/internal/verification/service ProfileSource,AuditPublisher

type AttemptStore interface {
	Create(ctx context.Context, a *models.Attempt) error
	Update(ctx context.Context, a *models.Attempt) error
	FindByID(ctx context.Context, attemptID id.AttemptID) (*models.Attempt, error)
	FindByReceipt(ctx context.Context, receiptID string) (*models.Attempt, error)
	ListByUserWindow(ctx context.Context, userID id.UserID, windowID *id.WindowID) ([]*models.Attempt, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Attempt, error)
	SetDisplay(ctx context.Context, userID id.UserID, display bool) error
	Delete(ctx context.Context, attemptID id.AttemptID) error
}

type WindowStore interface {
	Create(ctx context.Context, w *models.Window) error
	FindByID(ctx context.Context, windowID id.WindowID) (*models.Window, error)
	ListByCourse(ctx context.Context, courseID id.CourseID) ([]*models.Window, error)
}

type CheckpointStore interface {
	Create(ctx context.Context, cp *models.Checkpoint) error
	FindByID(ctx context.Context, checkpointID id.CheckpointID) (*models.Checkpoint, error)
	FindByCourseName(ctx context.Context, courseID id.CourseID, name string) (*models.Checkpoint, error)
	AddAttempt(ctx context.Context, checkpointID id.CheckpointID, attemptID id.AttemptID) error
	RemoveAttempt(ctx context.Context, checkpointID id.CheckpointID, attemptID id.AttemptID) error
	CountAttempts(ctx context.Context, checkpointID id.CheckpointID) (int, error)
	ListForAttempt(ctx context.Context, attemptID id.AttemptID) ([]*models.Checkpoint, error)
}

type LedgerStore interface {
	Append(ctx context.Context, e *models.StatusEntry) error
	LatestLocation(ctx context.Context, checkpointID id.CheckpointID, userID id.UserID) (string, bool, error)
	History(ctx context.Context, checkpointID id.CheckpointID, userID id.UserID) ([]*models.StatusEntry, error)
}

type SkipStore interface {
	Create(ctx context.Context, r *models.SkipRecord) error
	Exists(ctx context.Context, courseID id.CourseID, userID id.UserID) (bool, error)
}

// StatusCache memoises UserStatus per (user, window). Get also reports the
// user's cache generation; Set only stores when that generation is still
// current, so a status computed before an Invalidate is dropped.
type StatusCache interface {
	Get(ctx context.Context, userID id.UserID, windowID *id.WindowID) (status models.UserStatus, gen uint64, ok bool, err error)
	Set(ctx context.Context, userID id.UserID, windowID *id.WindowID, gen uint64, status models.UserStatus) error
	Invalidate(ctx context.Context, userID id.UserID) error
}

// ProfileSource supplies the display name frozen onto an attempt.
type ProfileSource interface {
	DisplayName(ctx context.Context, userID id.UserID) (string, error)
}

// PhotoSealer encrypts verification photos before storage.
type PhotoSealer interface {
	SealFace(img []byte) ([]byte, error)
	SealPhotoID(img []byte) (sealed []byte, wrappedKey string, err error)
}

// PhotoStore holds sealed photos and exposes the URLs sent to the vendor.
type PhotoStore interface {
	Put(ctx context.Context, key string, data []byte) error
	URL(key string) string
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TxRunner runs fn in one unit of work.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Stores groups the persistence dependencies.
type Stores struct {
	Attempts    AttemptStore
	Windows     WindowStore
	Checkpoints CheckpointStore
	Ledger      LedgerStore
	Skips       SkipStore
}

// Service owns the verification lifecycle and its derived queries.
type Service struct {
	attempts    AttemptStore
	windows     WindowStore
	checkpoints CheckpointStore
	ledger      LedgerStore
	skips       SkipStore

	submitter models.Submitter
	profiles  ProfileSource
	sealer    PhotoSealer
	photos    PhotoStore
	cache     StatusCache
	auditor   AuditPublisher
	tx        TxRunner

	validity         time.Duration
	platformName     string
	reviewingService string

	logger  *slog.Logger
	metrics *verificationmetrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *verificationmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func WithStatusCache(c StatusCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithPhotoStorage enables photo uploads.
func WithPhotoStorage(sealer PhotoSealer, photos PhotoStore) Option {
	return func(s *Service) {
		s.sealer = sealer
		s.photos = photos
	}
}

// WithValidity sets how long an attempt counts after creation.
func WithValidity(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.validity = d
		}
	}
}

func WithPlatformName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.platformName = name
		}
	}
}

func WithReviewingService(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.reviewingService = name
		}
	}
}

func New(stores Stores, submitter models.Submitter, profiles ProfileSource, opts ...Option) *Service {
	s := &Service{
		attempts:         stores.Attempts,
		windows:          stores.Windows,
		checkpoints:      stores.Checkpoints,
		ledger:           stores.Ledger,
		skips:            stores.Skips,
		submitter:        submitter,
		profiles:         profiles,
		tx:               passthroughTx{},
		validity:         365 * 24 * time.Hour,
		platformName:     "Veritas",
		reviewingService: "SoftwareSecure",
		logger:           slog.Default(),
		tracer:           otel.Tracer("veritas/verification/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// passthroughTx is used with the in-memory stores, which have no transactions.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// translate maps store sentinels onto domain error codes. Errors that
// already carry a code pass through.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, what+" already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, what+" store unavailable")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+what)
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, e audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	e.Action = string(event)
	e.Category = event.Category()
	if err := s.auditor.Emit(ctx, e); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

// invalidate drops cached statuses after a write. Cache failures are logged
// and otherwise ignored since the TTL bounds staleness.
func (s *Service) invalidate(ctx context.Context, userID id.UserID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "status cache invalidation failed",
			"user_id", userID.String(),
			"error", err,
		)
	}
}

func (s *Service) countTransition(status models.Status) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(status))
	}
}

func windowLabel(windowID *id.WindowID) string {
	if windowID == nil {
		return ""
	}
	return windowID.String()
}
