package models

import (
	"time"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// Window is a course-scoped period during which learners must reverify.
// Windows are immutable once created.
type Window struct {
	ID        id.WindowID
	CourseID  id.CourseID
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

func NewWindow(courseID id.CourseID, start, end, now time.Time) (*Window, error) {
	if courseID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "course_id is required")
	}
	if !start.Before(end) {
		return nil, dErrors.New(dErrors.CodeValidation, "start_date must be before end_date")
	}
	return &Window{
		ID:        id.NewWindowID(),
		CourseID:  courseID,
		StartDate: start,
		EndDate:   end,
		CreatedAt: now,
	}, nil
}

// Contains reports whether t falls inside the window.
func (w *Window) Contains(t time.Time) bool {
	return !t.Before(w.StartDate) && !t.After(w.EndDate)
}
