package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"veritas/internal/platform/kafka"
	id "veritas/pkg/domain"
	audit "veritas/pkg/platform/audit"
	"veritas/pkg/platform/audit/archive"
)

// Archive is where consumed events end up.
type Archive interface {
	Append(ctx context.Context, r archive.Record) (bool, error)
}

var errNoEventID = errors.New("payload has no event id")

// decode turns a published payload into an archive record. Records are
// keyed by the payload id, not the Kafka key, which is the user id.
func decode(msg *kafka.Message) (archive.Record, error) {
	var p audit.Payload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		return archive.Record{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	eventID, err := uuid.Parse(p.ID)
	if err != nil {
		return archive.Record{}, errNoEventID
	}
	action := p.Action
	if action == "" {
		action = msg.Headers["event_type"]
	}
	r := archive.Record{
		EventID:    eventID,
		Category:   audit.AuditEvent(action).Category(),
		Action:     action,
		Subject:    p.Subject,
		CourseID:   p.CourseID,
		Status:     p.Status,
		Reason:     p.Reason,
		RequestID:  p.RequestID,
		ActorID:    p.ActorID,
		ClientIP:   p.ClientIP,
		DeviceID:   p.DeviceID,
		Severity:   p.Severity,
		OccurredAt: time.Now().UTC(),
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		r.OccurredAt = ts
	}
	if p.UserID != "" {
		if uid, err := id.ParseUserID(p.UserID); err == nil {
			r.UserID = &uid
		}
	}
	return r, nil
}

// ComplianceHandler archives compliance events. A store failure is returned
// so the message is redelivered; malformed input is logged and skipped
// because no amount of retrying will fix it.
type ComplianceHandler struct {
	archive Archive
	logger  *slog.Logger
}

func NewComplianceHandler(a Archive, logger *slog.Logger) *ComplianceHandler {
	return &ComplianceHandler{archive: a, logger: logger}
}

func (h *ComplianceHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	r, err := decode(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "CRITICAL: undecodable compliance event",
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	if r.UserID == nil {
		h.logger.ErrorContext(ctx, "CRITICAL: compliance event missing user",
			"event_id", r.EventID,
			"action", r.Action,
		)
		return nil
	}
	inserted, err := h.archive.Append(ctx, r)
	if err != nil {
		return fmt.Errorf("archive compliance event %s: %w", r.EventID, err)
	}
	if !inserted {
		h.logger.DebugContext(ctx, "compliance event already archived", "event_id", r.EventID)
	}
	return nil
}

// OpsHandler archives operational events on a best-effort basis.
type OpsHandler struct {
	archive Archive
	logger  *slog.Logger
}

func NewOpsHandler(a Archive, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{archive: a, logger: logger}
}

func (h *OpsHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	r, err := decode(msg)
	if err != nil {
		h.logger.DebugContext(ctx, "skipping undecodable ops event", "error", err)
		return nil
	}
	if _, err := h.archive.Append(ctx, r); err != nil {
		h.logger.DebugContext(ctx, "failed to archive ops event",
			"event_id", r.EventID,
			"action", r.Action,
			"error", err,
		)
	}
	return nil
}

// SecurityHandler archives security events. Storage failures are retried
// like compliance events; a missing severity defaults to warning.
type SecurityHandler struct {
	archive Archive
	logger  *slog.Logger
}

func NewSecurityHandler(a Archive, logger *slog.Logger) *SecurityHandler {
	return &SecurityHandler{archive: a, logger: logger}
}

func (h *SecurityHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	r, err := decode(msg)
	if err != nil {
		h.logger.WarnContext(ctx, "skipping undecodable security event", "error", err)
		return nil
	}
	if r.Severity == "" {
		r.Severity = string(audit.SeverityWarning)
	}
	if _, err := h.archive.Append(ctx, r); err != nil {
		return fmt.Errorf("archive security event %s: %w", r.EventID, err)
	}
	if r.Severity == string(audit.SeverityCritical) {
		h.logger.WarnContext(ctx, "critical security event",
			"action", r.Action,
			"subject", r.Subject,
			"client_ip", r.ClientIP,
		)
	}
	return nil
}
