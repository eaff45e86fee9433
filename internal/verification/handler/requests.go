package handler

import (
	"strings"
	"time"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

const maxLocationIDLen = 255

// CreateAttemptRequest is the body for POST /verifications. An empty body
// starts an original verification.
type CreateAttemptRequest struct {
	WindowID string `json:"window_id"`

	parsedWindowID *id.WindowID
}

func (r *CreateAttemptRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.WindowID = strings.TrimSpace(r.WindowID)
	if r.WindowID == "" {
		return nil
	}
	windowID, err := id.ParseWindowID(r.WindowID)
	if err != nil {
		return err
	}
	r.parsedWindowID = &windowID
	return nil
}

// CreateCheckpointRequest is the body for POST /courses/{course}/checkpoints.
type CreateCheckpointRequest struct {
	Name string `json:"name"`
}

func (r *CreateCheckpointRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

// CheckpointSubmissionRequest links an attempt to a checkpoint.
type CheckpointSubmissionRequest struct {
	AttemptID  string `json:"attempt_id"`
	LocationID string `json:"location_id"`

	parsedAttemptID id.AttemptID
}

func (r *CheckpointSubmissionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.LocationID) > maxLocationIDLen {
		return dErrors.New(dErrors.CodeValidation, "location_id must be at most 255 characters")
	}
	r.LocationID = strings.TrimSpace(r.LocationID)
	attemptID, err := id.ParseAttemptID(strings.TrimSpace(r.AttemptID))
	if err != nil {
		return err
	}
	r.parsedAttemptID = attemptID
	return nil
}

// CreateWindowRequest is the staff body for POST /windows.
type CreateWindowRequest struct {
	CourseID  string    `json:"course_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	parsedCourseID id.CourseID
}

func (r *CreateWindowRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	courseID, err := id.ParseCourseID(strings.TrimSpace(r.CourseID))
	if err != nil {
		return err
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "start_date and end_date are required")
	}
	r.parsedCourseID = courseID
	return nil
}

// DenyRequest carries a manual denial reason.
type DenyRequest struct {
	ErrorMsg  string `json:"error_msg"`
	ErrorCode string `json:"error_code"`
}

func (r *DenyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ErrorMsg = strings.TrimSpace(r.ErrorMsg)
	if r.ErrorMsg == "" {
		return dErrors.New(dErrors.CodeValidation, "error_msg is required")
	}
	return nil
}

// ResultCallback is the vendor's result notification.
type ResultCallback struct {
	ReceiptID   string `json:"EdX-ID"`
	Result      string `json:"Result"`
	Reason      any    `json:"Reason"`
	MessageType string `json:"MessageType"`
}
