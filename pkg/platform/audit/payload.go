package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Payload is the JSON document written to the outbox and published to Kafka.
type Payload struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Action    string `json:"action"`
	CourseID  string `json:"course_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Device    string `json:"device,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
	Severity  string `json:"severity,omitempty"`
}

// NewOutboxEntry serializes event. The category is always derived from the
// action so callers cannot misfile a compliance event.
func NewOutboxEntry(event Event, now time.Time) (OutboxEntry, error) {
	eventID := uuid.New()
	payload := Payload{
		ID:        eventID.String(),
		Category:  string(AuditEvent(event.Action).Category()),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:   event.Subject,
		Action:    event.Action,
		CourseID:  event.CourseID,
		Status:    event.Status,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
		ClientIP:  event.ClientIP,
		Device:    event.Device,
		DeviceID:  event.DeviceID,
		Severity:  string(event.Severity),
	}
	aggregateID := eventID.String()
	if !event.UserID.IsNil() {
		payload.UserID = event.UserID.String()
		aggregateID = payload.UserID
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("marshal audit payload: %w", err)
	}
	return OutboxEntry{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		EventType:   event.Action,
		Payload:     b,
		CreatedAt:   now,
	}, nil
}
