package handler

import (
	"time"

	"veritas/internal/verification/models"
)

type AttemptResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	WindowID    string     `json:"window_id,omitempty"`
	ReceiptID   string     `json:"receipt_id"`
	Name        string     `json:"name,omitempty"`
	ErrorMsg    string     `json:"error_msg,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func FromAttempt(a *models.Attempt) AttemptResponse {
	resp := AttemptResponse{
		ID:          a.ID.String(),
		Status:      string(a.Status),
		ReceiptID:   a.ReceiptID,
		Name:        a.Name,
		SubmittedAt: a.SubmittedAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.WindowID != nil {
		resp.WindowID = a.WindowID.String()
	}
	if a.Status == models.StatusDenied {
		resp.ErrorMsg = a.ParsedErrorMsg()
	}
	return resp
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type CheckpointResponse struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func FromCheckpoint(cp *models.Checkpoint) CheckpointResponse {
	return CheckpointResponse{
		ID:        cp.ID.String(),
		CourseID:  string(cp.CourseID),
		Name:      cp.Name,
		CreatedAt: cp.CreatedAt,
	}
}

type WindowResponse struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func FromWindow(w *models.Window) WindowResponse {
	return WindowResponse{
		ID:        w.ID.String(),
		CourseID:  string(w.CourseID),
		StartDate: w.StartDate,
		EndDate:   w.EndDate,
	}
}

type ReverifiedResponse struct {
	ReverifiedForAll bool `json:"reverified_for_all"`
	Skipped          bool `json:"skipped"`
}
