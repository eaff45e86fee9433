package models

import (
	"fmt"

	dErrors "veritas/pkg/domain-errors"
)

// Action is a state-machine input.
type Action string

const (
	ActionMarkReady   Action = "mark_ready"
	ActionSubmit      Action = "submit"
	ActionApprove     Action = "approve"
	ActionDeny        Action = "deny"
	ActionSystemError Action = "system_error"
)

// Outcome is the result of applying an Action. NoOp outcomes leave the attempt
// untouched, including its error message.
type Outcome struct {
	To   Status
	NoOp bool
}

// transitions lists every legal (action, from) pair. Anything absent is an
// invalid transition. Submit lists its success target; the vendor response
// decides between submitted and must_retry.
var transitions = map[Action]map[Status]Outcome{
	ActionMarkReady: {
		StatusCreated: {To: StatusReady},
	},
	ActionSubmit: {
		StatusReady: {To: StatusSubmitted},
	},
	ActionApprove: {
		StatusSubmitted: {To: StatusApproved},
		StatusMustRetry: {To: StatusApproved},
		StatusDenied:    {To: StatusApproved},
		StatusApproved:  {To: StatusApproved, NoOp: true},
	},
	ActionDeny: {
		StatusSubmitted: {To: StatusDenied},
		StatusMustRetry: {To: StatusDenied},
		StatusApproved:  {To: StatusDenied},
		StatusDenied:    {To: StatusDenied, NoOp: true},
	},
	ActionSystemError: {
		StatusSubmitted: {To: StatusMustRetry},
		StatusMustRetry: {To: StatusMustRetry},
		StatusApproved:  {To: StatusApproved, NoOp: true},
		StatusDenied:    {To: StatusDenied, NoOp: true},
	},
}

// Transition validates action against the current status.
func Transition(action Action, from Status) (Outcome, error) {
	byFrom, ok := transitions[action]
	if !ok {
		return Outcome{}, dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("unknown action %q", action))
	}
	out, ok := byFrom[from]
	if !ok {
		return Outcome{}, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("cannot %s an attempt in status %s", action, from))
	}
	return out, nil
}

// IsInvalidTransition reports whether err came from Transition.
func IsInvalidTransition(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeInvalidState)
}
