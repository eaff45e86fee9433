package attempt

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

const attemptColumns = `
	id, seq, user_id, window_id, status, name, face_image_url, photo_id_image_url,
	photo_id_key, receipt_id, error_msg, error_code, reviewing_service, reviewing_user,
	submitted_at, display, created_at, updated_at`

// PostgresStore persists attempts in verification_attempts. Seq comes from
// the table's BIGSERIAL and breaks created_at ties.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*models.Attempt, error) {
	var (
		a           models.Attempt
		attemptID   uuid.UUID
		userID      uuid.UUID
		windowID    uuid.NullUUID
		status      string
		submittedAt sql.NullTime
	)
	err := row.Scan(
		&attemptID, &a.Seq, &userID, &windowID, &status, &a.Name, &a.FaceImageURL,
		&a.PhotoIDImageURL, &a.PhotoIDKey, &a.ReceiptID, &a.ErrorMsg, &a.ErrorCode,
		&a.ReviewingService, &a.ReviewingUser, &submittedAt, &a.Display, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ID = id.AttemptID(attemptID)
	a.UserID = id.UserID(userID)
	a.Status = models.Status(status)
	if windowID.Valid {
		w := id.WindowID(windowID.UUID)
		a.WindowID = &w
	}
	if submittedAt.Valid {
		t := submittedAt.Time
		a.SubmittedAt = &t
	}
	return &a, nil
}

func nullableWindow(w *id.WindowID) uuid.NullUUID {
	if w == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*w), Valid: true}
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Attempt) error {
	query := `
		INSERT INTO verification_attempts (
			id, user_id, window_id, status, name, face_image_url, photo_id_image_url,
			photo_id_key, receipt_id, error_msg, error_code, reviewing_service, reviewing_user,
			submitted_at, display, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING seq
	`
	err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(a.ID), uuid.UUID(a.UserID), nullableWindow(a.WindowID), string(a.Status),
		a.Name, a.FaceImageURL, a.PhotoIDImageURL, a.PhotoIDKey, a.ReceiptID,
		a.ErrorMsg, a.ErrorCode, a.ReviewingService, a.ReviewingUser,
		a.SubmittedAt, a.Display, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.Seq)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// Update writes the mutable columns. Identity, owner, window and creation
// time never change after Create.
func (s *PostgresStore) Update(ctx context.Context, a *models.Attempt) error {
	query := `
		UPDATE verification_attempts SET
			status = $2, name = $3, face_image_url = $4, photo_id_image_url = $5,
			photo_id_key = $6, error_msg = $7, error_code = $8, reviewing_service = $9,
			reviewing_user = $10, submitted_at = $11, display = $12, updated_at = $13
		WHERE id = $1
	`
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(a.ID), string(a.Status), a.Name, a.FaceImageURL, a.PhotoIDImageURL,
		a.PhotoIDKey, a.ErrorMsg, a.ErrorCode, a.ReviewingService, a.ReviewingUser,
		a.SubmittedAt, a.Display, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM verification_attempts WHERE ` + where
	a, err := scanAttempt(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, attemptID id.AttemptID) (*models.Attempt, error) {
	return s.findOne(ctx, "id = $1", uuid.UUID(attemptID))
}

func (s *PostgresStore) FindByReceipt(ctx context.Context, receiptID string) (*models.Attempt, error) {
	return s.findOne(ctx, "receipt_id = $1", receiptID)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Attempt, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []*models.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListByUserWindow(ctx context.Context, userID id.UserID, windowID *id.WindowID) ([]*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + `
		FROM verification_attempts
		WHERE user_id = $1 AND window_id IS NOT DISTINCT FROM $2
		ORDER BY created_at DESC, seq DESC`
	return s.list(ctx, query, uuid.UUID(userID), nullableWindow(windowID))
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + `
		FROM verification_attempts
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC`
	return s.list(ctx, query, uuid.UUID(userID))
}

func (s *PostgresStore) SetDisplay(ctx context.Context, userID id.UserID, display bool) error {
	query := `UPDATE verification_attempts SET display = $2 WHERE user_id = $1`
	if _, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query, uuid.UUID(userID), display); err != nil {
		return fmt.Errorf("set display: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, attemptID id.AttemptID) error {
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx,
		`DELETE FROM verification_attempts WHERE id = $1`, uuid.UUID(attemptID))
	if err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
