package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

const maxCheckpointNameLen = 32

// Checkpoint is a named verification gate inside a course, such as "midterm".
// (CourseID, Name) is unique.
type Checkpoint struct {
	ID        id.CheckpointID
	CourseID  id.CourseID
	Name      string
	CreatedAt time.Time
}

func NewCheckpoint(courseID id.CourseID, name string, now time.Time) (*Checkpoint, error) {
	name = strings.TrimSpace(name)
	if courseID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "course_id is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "checkpoint name is required")
	}
	if len(name) > maxCheckpointNameLen {
		return nil, dErrors.New(dErrors.CodeValidation, "checkpoint name must be at most 32 characters")
	}
	return &Checkpoint{
		ID:        id.NewCheckpointID(),
		CourseID:  courseID,
		Name:      name,
		CreatedAt: now,
	}, nil
}

// StatusEntry is one append-only ledger row.
type StatusEntry struct {
	ID           uuid.UUID
	CheckpointID id.CheckpointID
	UserID       id.UserID
	Status       LedgerStatus
	// LocationID identifies the courseware block that raised the event.
	LocationID string
	Timestamp  time.Time
	Seq        int64
}

func NewStatusEntry(checkpointID id.CheckpointID, userID id.UserID, status LedgerStatus, locationID string, now time.Time) (*StatusEntry, error) {
	if checkpointID.IsNil() || userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "checkpoint and user are required")
	}
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown ledger status "+string(status))
	}
	return &StatusEntry{
		ID:           uuid.New(),
		CheckpointID: checkpointID,
		UserID:       userID,
		Status:       status,
		LocationID:   locationID,
		Timestamp:    now,
	}, nil
}

// SkipRecord notes that a user declined a checkpoint's reverification. At
// most one exists per (UserID, CourseID).
type SkipRecord struct {
	ID           uuid.UUID
	CheckpointID id.CheckpointID
	UserID       id.UserID
	CourseID     id.CourseID
	CreatedAt    time.Time
}

func NewSkipRecord(checkpointID id.CheckpointID, userID id.UserID, courseID id.CourseID, now time.Time) (*SkipRecord, error) {
	if checkpointID.IsNil() || userID.IsNil() || courseID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "checkpoint, user and course are required")
	}
	return &SkipRecord{
		ID:           uuid.New(),
		CheckpointID: checkpointID,
		UserID:       userID,
		CourseID:     courseID,
		CreatedAt:    now,
	}, nil
}
