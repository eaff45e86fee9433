package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"veritas/internal/platform/postgres"
	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
	txcontext "veritas/pkg/platform/tx"
)

const foreignKeyViolation = "23503"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*models.Checkpoint, error) {
	var (
		cp       models.Checkpoint
		cpID     uuid.UUID
		courseID string
	)
	if err := row.Scan(&cpID, &courseID, &cp.Name, &cp.CreatedAt); err != nil {
		return nil, err
	}
	cp.ID = id.CheckpointID(cpID)
	cp.CourseID = id.CourseID(courseID)
	return &cp, nil
}

// Create relies on the (course_id, name) unique constraint.
func (s *PostgresStore) Create(ctx context.Context, cp *models.Checkpoint) error {
	query := `
		INSERT INTO verification_checkpoints (id, course_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(cp.ID), string(cp.CourseID), cp.Name, cp.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, where string, args ...any) (*models.Checkpoint, error) {
	query := `SELECT id, course_id, name, created_at FROM verification_checkpoints WHERE ` + where
	cp, err := scanCheckpoint(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find checkpoint: %w", err)
	}
	return cp, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, checkpointID id.CheckpointID) (*models.Checkpoint, error) {
	return s.findOne(ctx, "id = $1", uuid.UUID(checkpointID))
}

func (s *PostgresStore) FindByCourseName(ctx context.Context, courseID id.CourseID, name string) (*models.Checkpoint, error) {
	return s.findOne(ctx, "course_id = $1 AND name = $2", string(courseID), name)
}

func (s *PostgresStore) AddAttempt(ctx context.Context, checkpointID id.CheckpointID, attemptID id.AttemptID) error {
	query := `
		INSERT INTO verification_checkpoint_attempts (checkpoint_id, attempt_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query, uuid.UUID(checkpointID), uuid.UUID(attemptID))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("add checkpoint attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveAttempt(ctx context.Context, checkpointID id.CheckpointID, attemptID id.AttemptID) error {
	query := `DELETE FROM verification_checkpoint_attempts WHERE checkpoint_id = $1 AND attempt_id = $2`
	if _, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query, uuid.UUID(checkpointID), uuid.UUID(attemptID)); err != nil {
		return fmt.Errorf("remove checkpoint attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountAttempts(ctx context.Context, checkpointID id.CheckpointID) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM verification_checkpoint_attempts WHERE checkpoint_id = $1`
	if err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(checkpointID)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count checkpoint attempts: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListForAttempt(ctx context.Context, attemptID id.AttemptID) ([]*models.Checkpoint, error) {
	query := `
		SELECT c.id, c.course_id, c.name, c.created_at
		FROM verification_checkpoints c
		JOIN verification_checkpoint_attempts ca ON ca.checkpoint_id = c.id
		WHERE ca.attempt_id = $1
		ORDER BY c.course_id, c.name
	`
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, uuid.UUID(attemptID))
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []*models.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return out, nil
}
