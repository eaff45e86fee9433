package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"veritas/internal/platform/postgres"
	"veritas/internal/profile/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
	txcontext "veritas/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO user_profiles (user_id, username, name, has_profile_image, profile_image_uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			name = EXCLUDED.name,
			has_profile_image = EXCLUDED.has_profile_image,
			profile_image_uploaded_at = EXCLUDED.profile_image_uploaded_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.UserID), p.Username, p.Name, p.HasProfileImage, p.ProfileImageUploadedAt, p.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByUserID(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	query := `
		SELECT user_id, username, name, has_profile_image, profile_image_uploaded_at, updated_at
		FROM user_profiles WHERE user_id = $1
	`
	var (
		p          models.Profile
		rawUserID  uuid.UUID
		uploadedAt sql.NullTime
	)
	err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID)).
		Scan(&rawUserID, &p.Username, &p.Name, &p.HasProfileImage, &uploadedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	p.UserID = id.UserID(rawUserID)
	if uploadedAt.Valid {
		t := uploadedAt.Time
		p.ProfileImageUploadedAt = &t
	}
	return &p, nil
}
