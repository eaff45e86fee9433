package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	txcontext "veritas/pkg/platform/tx"
)

// PostgresStore only ever inserts into verification_status_ledger.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e *models.StatusEntry) error {
	query := `
		INSERT INTO verification_status_ledger (id, checkpoint_id, user_id, status, location_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`
	err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query,
		e.ID, uuid.UUID(e.CheckpointID), uuid.UUID(e.UserID), string(e.Status), e.LocationID, e.Timestamp,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestLocation(ctx context.Context, checkpointID id.CheckpointID, userID id.UserID) (string, bool, error) {
	query := `
		SELECT location_id FROM verification_status_ledger
		WHERE checkpoint_id = $1 AND user_id = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`
	var location string
	err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(checkpointID), uuid.UUID(userID)).Scan(&location)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("latest ledger location: %w", err)
	}
	return location, true, nil
}

func (s *PostgresStore) History(ctx context.Context, checkpointID id.CheckpointID, userID id.UserID) ([]*models.StatusEntry, error) {
	query := `
		SELECT id, checkpoint_id, user_id, status, location_id, created_at, seq
		FROM verification_status_ledger
		WHERE checkpoint_id = $1 AND user_id = $2
		ORDER BY created_at, seq
	`
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, uuid.UUID(checkpointID), uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("ledger history: %w", err)
	}
	defer rows.Close()

	var out []*models.StatusEntry
	for rows.Next() {
		var (
			e      models.StatusEntry
			cpID   uuid.UUID
			uID    uuid.UUID
			status string
		)
		if err := rows.Scan(&e.ID, &cpID, &uID, &status, &e.LocationID, &e.Timestamp, &e.Seq); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.CheckpointID = id.CheckpointID(cpID)
		e.UserID = id.UserID(uID)
		e.Status = models.LedgerStatus(status)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return out, nil
}
