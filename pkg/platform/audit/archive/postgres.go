package archive

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "veritas/pkg/domain"
	audit "veritas/pkg/platform/audit"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, r Record) (bool, error) {
	query := `
		INSERT INTO audit_archive (event_id, category, action, user_id, subject, course_id, status,
			reason, request_id, actor_id, client_ip, device_id, severity, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (event_id) DO NOTHING
	`
	var userID any
	if r.UserID != nil {
		userID = uuid.UUID(*r.UserID)
	}
	res, err := s.db.ExecContext(ctx, query,
		r.EventID, string(r.Category), r.Action, userID, r.Subject, r.CourseID, r.Status,
		r.Reason, r.RequestID, r.ActorID, r.ClientIP, r.DeviceID, r.Severity, r.OccurredAt)
	if err != nil {
		return false, fmt.Errorf("insert audit archive: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert audit archive: %w", err)
	}
	return n == 1, nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT event_id, category, action, user_id, subject, course_id, status,
			reason, request_id, actor_id, client_ip, device_id, severity, occurred_at
		FROM audit_archive
		WHERE user_id = $1
		ORDER BY occurred_at DESC, event_id
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("query audit archive: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r        Record
			category string
			uid      uuid.NullUUID
		)
		if err := rows.Scan(&r.EventID, &category, &r.Action, &uid, &r.Subject, &r.CourseID, &r.Status,
			&r.Reason, &r.RequestID, &r.ActorID, &r.ClientIP, &r.DeviceID, &r.Severity, &r.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit archive: %w", err)
		}
		r.Category = audit.EventCategory(category)
		if uid.Valid {
			u := id.UserID(uid.UUID)
			r.UserID = &u
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) Count(ctx context.Context, category audit.EventCategory) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM audit_archive WHERE category = $1`, string(category)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit archive: %w", err)
	}
	return n, nil
}
