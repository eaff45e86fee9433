package skip

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"veritas/internal/platform/postgres"
	"veritas/internal/verification/models"
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

func (s *PostgresStore) Create(ctx context.Context, r *models.SkipRecord) error {
	query := `
		INSERT INTO skipped_reverifications (id, checkpoint_id, user_id, course_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		r.ID, uuid.UUID(r.CheckpointID), uuid.UUID(r.UserID), string(r.CourseID), r.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert skip record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, courseID id.CourseID, userID id.UserID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM skipped_reverifications WHERE course_id = $1 AND user_id = $2)`
	if err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, string(courseID), uuid.UUID(userID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("skip record exists: %w", err)
	}
	return exists, nil
}
