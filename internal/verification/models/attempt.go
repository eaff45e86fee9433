package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

const genericPhotoError = "There was an error verifying your ID photos."

// errorMessages translates vendor (category, reason) pairs.
var errorMessages = map[string]map[string]string{
	"photoIdReasons": {
		"Not provided":   "No photo ID was provided.",
		"Text not clear": "We couldn't read your name from your photo ID image.",
	},
	"generalReasons": {
		"Name mismatch": "The name associated with your account and the name on your ID do not match.",
	},
	"userPhotoReasons": {
		"Image not clear":  "The image of your face was not clear.",
		"Face out of view": "Your face was not visible in your self-photo.",
	},
}

// Submitter sends an attempt's payload to the verification vendor and
// reports the HTTP status it answered with.
type Submitter interface {
	Submit(ctx context.Context, a *Attempt) (statusCode int, err error)
}

// Attempt is one photo-verification cycle for a user. A nil WindowID marks
// the user's original verification; otherwise it is a course reverification.
type Attempt struct {
	ID       id.AttemptID
	UserID   id.UserID
	WindowID *id.WindowID
	Status   Status
	// Name is the user's display name frozen by MarkReady.
	Name             string
	FaceImageURL     string
	PhotoIDImageURL  string
	PhotoIDKey       string
	ReceiptID        string
	ErrorMsg         string
	ErrorCode        string
	ReviewingUser    string
	ReviewingService string
	SubmittedAt      *time.Time
	Display          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	// Seq orders attempts created within the same clock tick. Assigned by the store.
	Seq int64
}

// NewAttempt starts an attempt in the created state.
func NewAttempt(userID id.UserID, windowID *id.WindowID, now time.Time) (*Attempt, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	if windowID != nil && windowID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "window_id must not be nil")
	}
	return &Attempt{
		ID:        id.NewAttemptID(),
		UserID:    userID,
		WindowID:  windowID,
		Status:    StatusCreated,
		ReceiptID: uuid.NewString(),
		Display:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsOriginal reports whether this is a window-less attempt.
func (a *Attempt) IsOriginal() bool {
	return a.WindowID == nil
}

// InWindow reports whether the attempt belongs to windowID (nil = original).
func (a *Attempt) InWindow(windowID *id.WindowID) bool {
	if a.WindowID == nil || windowID == nil {
		return a.WindowID == nil && windowID == nil
	}
	return *a.WindowID == *windowID
}

// MarkReady freezes the user's name on the attempt.
func (a *Attempt) MarkReady(name string, now time.Time) error {
	out, err := Transition(ActionMarkReady, a.Status)
	if err != nil {
		return err
	}
	a.Name = strings.TrimSpace(name)
	a.Status = out.To
	a.UpdatedAt = now
	return nil
}

// Submit hands the attempt to s. Vendor failures of any kind (error,
// timeout, non-200) move the attempt to must_retry and are not returned.
func (a *Attempt) Submit(ctx context.Context, s Submitter, now time.Time) error {
	out, err := Transition(ActionSubmit, a.Status)
	if err != nil {
		return err
	}

	code, err := s.Submit(ctx, a)
	a.UpdatedAt = now
	switch {
	case err != nil:
		a.Status = StatusMustRetry
		a.ErrorMsg = err.Error()
	case code != http.StatusOK:
		a.Status = StatusMustRetry
		a.ErrorMsg = fmt.Sprintf("verification service responded with status %d", code)
	default:
		a.Status = out.To
		a.SubmittedAt = &now
		a.ErrorMsg = ""
	}
	return nil
}

// Approve records a passing review. It reports whether anything changed.
func (a *Attempt) Approve(reviewingUser, reviewingService string, now time.Time) (bool, error) {
	out, err := Transition(ActionApprove, a.Status)
	if err != nil || out.NoOp {
		return false, err
	}
	a.Status = out.To
	a.ErrorMsg = ""
	a.ErrorCode = ""
	a.ReviewingUser = reviewingUser
	a.ReviewingService = reviewingService
	a.UpdatedAt = now
	return true, nil
}

// Deny records a failing review with the vendor's reasons.
func (a *Attempt) Deny(errorMsg, errorCode, reviewingUser, reviewingService string, now time.Time) (bool, error) {
	out, err := Transition(ActionDeny, a.Status)
	if err != nil || out.NoOp {
		return false, err
	}
	a.Status = out.To
	a.ErrorMsg = errorMsg
	a.ErrorCode = errorCode
	a.ReviewingUser = reviewingUser
	a.ReviewingService = reviewingService
	a.UpdatedAt = now
	return true, nil
}

// SystemError records a vendor-side processing failure. Decided attempts
// are left alone.
func (a *Attempt) SystemError(errorMsg, errorCode, reviewingService string, now time.Time) (bool, error) {
	out, err := Transition(ActionSystemError, a.Status)
	if err != nil || out.NoOp {
		return false, err
	}
	a.Status = out.To
	a.ErrorMsg = errorMsg
	a.ErrorCode = errorCode
	a.ReviewingService = reviewingService
	a.UpdatedAt = now
	return true, nil
}

// ExpiresAt is the end of the attempt's validity.
func (a *Attempt) ExpiresAt(validity time.Duration) time.Time {
	return a.CreatedAt.Add(validity)
}

// ActiveAt reports whether t falls within [CreatedAt, CreatedAt+validity].
func (a *Attempt) ActiveAt(t time.Time, validity time.Duration) bool {
	return !t.Before(a.CreatedAt) && !t.After(a.ExpiresAt(validity))
}

// IsExpired reports whether the attempt was created before the validity cutoff.
func (a *Attempt) IsExpired(now time.Time, validity time.Duration) bool {
	return a.CreatedAt.Before(now.Add(-validity))
}

// ParsedErrorMsg turns the vendor's JSON reason list into a readable
// sentence. Anything it does not recognise yields a generic message.
func (a *Attempt) ParsedErrorMsg() string {
	var payload []map[string][]string
	if err := json.Unmarshal([]byte(a.ErrorMsg), &payload); err != nil || len(payload) == 0 {
		return genericPhotoError
	}

	categories := make([]string, 0, len(payload[0]))
	for category := range payload[0] {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var msgs []string
	for _, category := range categories {
		known, ok := errorMessages[category]
		if !ok {
			return genericPhotoError
		}
		for _, reason := range payload[0][category] {
			msg, ok := known[reason]
			if !ok {
				return genericPhotoError
			}
			msgs = append(msgs, msg)
		}
	}
	if len(msgs) == 0 {
		return genericPhotoError
	}
	return strings.Join(msgs, ", ")
}
