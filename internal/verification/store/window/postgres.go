package window

import (
	"context"
	"database/sql"
	"errors"
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWindow(row rowScanner) (*models.Window, error) {
	var (
		w        models.Window
		windowID uuid.UUID
		courseID string
	)
	if err := row.Scan(&windowID, &courseID, &w.StartDate, &w.EndDate, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.ID = id.WindowID(windowID)
	w.CourseID = id.CourseID(courseID)
	return &w, nil
}

func (s *PostgresStore) Create(ctx context.Context, w *models.Window) error {
	query := `
		INSERT INTO verification_windows (id, course_id, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(w.ID), string(w.CourseID), w.StartDate, w.EndDate, w.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert window: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, windowID id.WindowID) (*models.Window, error) {
	query := `
		SELECT id, course_id, start_date, end_date, created_at
		FROM verification_windows WHERE id = $1
	`
	w, err := scanWindow(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(windowID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find window: %w", err)
	}
	return w, nil
}

func (s *PostgresStore) ListByCourse(ctx context.Context, courseID id.CourseID) ([]*models.Window, error) {
	query := `
		SELECT id, course_id, start_date, end_date, created_at
		FROM verification_windows
		WHERE course_id = $1
		ORDER BY start_date, id
	`
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, string(courseID))
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	defer rows.Close()

	var out []*models.Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate windows: %w", err)
	}
	return out, nil
}
