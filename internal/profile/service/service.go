// Package service manages user profiles and their images.
package service

import (
	"context"
	"errors"
	"log/slog"

	"veritas/internal/profile/models"
	"veritas/internal/profileimage"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/audit"
	"veritas/pkg/platform/sentinel"
	"veritas/pkg/requestcontext"
)

type Store interface {
	Save(ctx context.Context, p *models.Profile) error
	FindByUserID(ctx context.Context, userID id.UserID) (*models.Profile, error)
}

// ImageGenerator renders and removes the stored renditions of a profile image.
type ImageGenerator interface {
	Generate(ctx context.Context, data []byte, username string) error
	Remove(ctx context.Context, username string) error
	URLs(username string) map[string]string
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   Store
	images  ImageGenerator
	limits  profileimage.Limits
	auditor AuditPublisher
	logger  *slog.Logger
}

type Option func(*Service)

func WithImages(images ImageGenerator, limits profileimage.Limits) Option {
	return func(s *Service) {
		s.images = images
		s.limits = limits
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func translate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "profile not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "username already taken")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access profile")
	}
}

func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	p, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// DisplayName is the name verification attempts freeze at MarkReady.
func (s *Service) DisplayName(ctx context.Context, userID id.UserID) (string, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// Upsert creates the profile on first use. Later calls only change the name.
func (s *Service) Upsert(ctx context.Context, userID id.UserID, username, name string) (*models.Profile, error) {
	now := requestcontext.Now(ctx)
	p, err := s.store.FindByUserID(ctx, userID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		p, err = models.NewProfile(userID, username, name, now)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, translate(err)
	default:
		if err := p.Rename(name, now); err != nil {
			return nil, err
		}
	}
	if err := s.store.Save(ctx, p); err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// ImageURLs is empty until the user uploads an image.
func (s *Service) ImageURLs(p *models.Profile) map[string]string {
	if s.images == nil || !p.HasProfileImage {
		return nil
	}
	return s.images.URLs(p.Username)
}

func (s *Service) UploadImage(ctx context.Context, userID id.UserID, data []byte, filename, contentType string) (*models.Profile, error) {
	if s.images == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "profile images are not configured")
	}
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := profileimage.Validate(data, filename, contentType, s.limits); err != nil {
		return nil, err
	}
	if err := s.images.Generate(ctx, data, p.Username); err != nil {
		return nil, err
	}

	p.SetImage(true, requestcontext.Now(ctx))
	if err := s.store.Save(ctx, p); err != nil {
		return nil, translate(err)
	}
	s.emit(ctx, audit.EventProfileImageUploaded, userID)
	return p, nil
}

func (s *Service) RemoveImage(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	if s.images == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "profile images are not configured")
	}
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.images.Remove(ctx, p.Username); err != nil {
		return nil, err
	}

	p.SetImage(false, requestcontext.Now(ctx))
	if err := s.store.Save(ctx, p); err != nil {
		return nil, translate(err)
	}
	s.emit(ctx, audit.EventProfileImageRemoved, userID)
	return p, nil
}

// emit records operational events. Failures are logged only.
func (s *Service) emit(ctx context.Context, event audit.AuditEvent, userID id.UserID) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Category: event.Category(),
		Action:   string(event),
		UserID:   userID,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(event),
			"user_id", userID.String(),
			"error", err,
		)
	}
}
