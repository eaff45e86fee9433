package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "veritas/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers identity-verification outcomes that must be
	// retained for regulatory review: approvals, denials, skips.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine lifecycle activity useful for
	// debugging vendor integrations. Can be sampled downstream.
	CategoryOperations EventCategory = "operations"

	// CategorySecurity covers rejected or suspicious traffic such as vendor
	// callbacks with a bad signature. Buffered and never blocks a request.
	CategorySecurity EventCategory = "security"
)

// Severity routes security events in the SIEM.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	// Subject is the attempt, checkpoint or window the action applied to.
	Subject   string
	Action    string
	CourseID  string
	Status    string
	Reason    string
	RequestID string
	// ActorID is set when staff or the vendor callback acts on a user's behalf.
	ActorID  string
	ClientIP string
	Device   string
	// DeviceID is the caller-supplied installation id, when present.
	DeviceID string
	Severity Severity
}

type AuditEvent string

const (
	EventAttemptCreated     AuditEvent = "verification_attempt_created"
	EventAttemptReady       AuditEvent = "verification_attempt_ready"
	EventAttemptSubmitted   AuditEvent = "verification_attempt_submitted"
	EventAttemptMustRetry   AuditEvent = "verification_attempt_must_retry"
	EventAttemptApproved    AuditEvent = "verification_attempt_approved"
	EventAttemptDenied      AuditEvent = "verification_attempt_denied"
	EventAttemptSystemError AuditEvent = "verification_attempt_system_error"

	EventWindowCreated           AuditEvent = "verification_window_created"
	EventCheckpointCreated       AuditEvent = "verification_checkpoint_created"
	EventCheckpointStatusAdded   AuditEvent = "verification_checkpoint_status_added"
	EventReverificationSkipped   AuditEvent = "reverification_skipped"
	EventReverificationBannerOff AuditEvent = "reverification_banner_dismissed"

	EventProfileImageUploaded AuditEvent = "profile_image_uploaded"
	EventProfileImageRemoved  AuditEvent = "profile_image_removed"

	EventVendorSubmitFailed     AuditEvent = "vendor_submission_failed"
	EventVendorCircuitOpened    AuditEvent = "vendor_circuit_opened"
	EventVendorCircuitClosed    AuditEvent = "vendor_circuit_closed"
	EventCallbackRejected       AuditEvent = "vendor_callback_rejected"
	EventCallbackUnknownReceipt AuditEvent = "vendor_callback_unknown_receipt"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAttemptApproved:       CategoryCompliance,
	EventAttemptDenied:         CategoryCompliance,
	EventAttemptSubmitted:      CategoryCompliance,
	EventCheckpointStatusAdded: CategoryCompliance,
	EventReverificationSkipped: CategoryCompliance,

	EventCallbackRejected:       CategorySecurity,
	EventCallbackUnknownReceipt: CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations write to a transactional
// outbox so a database commit and its audit record succeed or fail together.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// OutboxEntry is a serialized event waiting to be relayed to the broker.
type OutboxEntry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Outbox is read by the relay worker.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}
