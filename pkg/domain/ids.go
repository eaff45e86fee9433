package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "veritas/pkg/domain-errors"
)

// Typed identifiers keep a user ID from being passed where an attempt ID is
// expected. All are UUID-backed except CourseID, which is an opaque course key.
type (
	UserID       uuid.UUID
	AttemptID    uuid.UUID
	WindowID     uuid.UUID
	CheckpointID uuid.UUID
)

// CourseID is an opaque course key such as "course-v1:Org+Course+Run".
type CourseID string

func NewUserID() UserID             { return UserID(uuid.New()) }
func NewAttemptID() AttemptID       { return AttemptID(uuid.New()) }
func NewWindowID() WindowID         { return WindowID(uuid.New()) }
func NewCheckpointID() CheckpointID { return CheckpointID(uuid.New()) }

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id AttemptID) String() string    { return uuid.UUID(id).String() }
func (id WindowID) String() string     { return uuid.UUID(id).String() }
func (id CheckpointID) String() string { return uuid.UUID(id).String() }
func (id CourseID) String() string     { return string(id) }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id AttemptID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id WindowID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CheckpointID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func ParseAttemptID(s string) (AttemptID, error) {
	u, err := parseUUID(s, "attempt_id")
	return AttemptID(u), err
}

func ParseWindowID(s string) (WindowID, error) {
	u, err := parseUUID(s, "window_id")
	return WindowID(u), err
}

func ParseCheckpointID(s string) (CheckpointID, error) {
	u, err := parseUUID(s, "checkpoint_id")
	return CheckpointID(u), err
}

// ParseCourseID accepts any non-blank key without interior whitespace.
func ParseCourseID(s string) (CourseID, error) {
	if s == "" || strings.TrimSpace(s) != s || strings.ContainsAny(s, " \t\r\n\x00") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid course_id")
	}
	if len(s) > 255 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "course_id too long")
	}
	return CourseID(s), nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}
