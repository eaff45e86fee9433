package models

// Status is the lifecycle state of a verification attempt.
type Status string

const (
	StatusCreated   Status = "created"
	StatusReady     Status = "ready"
	StatusSubmitted Status = "submitted"
	StatusMustRetry Status = "must_retry"
	StatusApproved  Status = "approved"
	StatusDenied    Status = "denied"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusReady, StatusSubmitted, StatusMustRetry, StatusApproved, StatusDenied:
		return true
	}
	return false
}

// IsActive reports whether an attempt in this status can be "the" active
// attempt for its (user, window).
func (s Status) IsActive() bool {
	switch s {
	case StatusReady, StatusSubmitted, StatusMustRetry, StatusApproved:
		return true
	}
	return false
}

// IsValidOrPending reports whether the status counts toward a user being
// verified or awaiting a vendor decision.
func (s Status) IsValidOrPending() bool {
	switch s {
	case StatusSubmitted, StatusMustRetry, StatusApproved:
		return true
	}
	return false
}

// StatusTag is the summary shown to learners for a (user, window).
type StatusTag string

const (
	TagNone         StatusTag = "none"
	TagApproved     StatusTag = "approved"
	TagPending      StatusTag = "pending"
	TagMustReverify StatusTag = "must_reverify"
	TagExpired      StatusTag = "expired"
)

// LedgerStatus is the status recorded against a checkpoint in the ledger.
type LedgerStatus string

const (
	LedgerSubmitted LedgerStatus = "submitted"
	LedgerApproved  LedgerStatus = "approved"
	LedgerDenied    LedgerStatus = "denied"
	LedgerError     LedgerStatus = "error"
)

func (s LedgerStatus) IsValid() bool {
	switch s {
	case LedgerSubmitted, LedgerApproved, LedgerDenied, LedgerError:
		return true
	}
	return false
}
