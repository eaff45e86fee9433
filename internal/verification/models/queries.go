package models

import "time"

// Newer reports whether a was created after b. Seq breaks timestamp ties.
func Newer(a, b *Attempt) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Seq > b.Seq
}

// MostRecent returns the newest attempt satisfying match, or nil.
func MostRecent(attempts []*Attempt, match func(*Attempt) bool) *Attempt {
	var best *Attempt
	for _, a := range attempts {
		if match != nil && !match(a) {
			continue
		}
		if best == nil || Newer(a, best) {
			best = a
		}
	}
	return best
}

// VerificationForDatetime picks the newest candidate whose validity covers
// deadline. With no deadline the newest candidate wins outright.
func VerificationForDatetime(deadline *time.Time, candidates []*Attempt, validity time.Duration) *Attempt {
	if deadline == nil {
		return MostRecent(candidates, nil)
	}
	return MostRecent(candidates, func(a *Attempt) bool {
		return a.ActiveAt(*deadline, validity)
	})
}

// UserStatus is the learner-facing verification summary.
type UserStatus struct {
	Tag     StatusTag
	Message string
}

// ComputeUserStatus derives the summary for one (user, window) from all of its
// attempts. Approved beats pending; otherwise the newest attempt decides.
func ComputeUserStatus(attempts []*Attempt, now time.Time, validity time.Duration, platformName string) UserStatus {
	valid := func(a *Attempt) bool { return !a.IsExpired(now, validity) }

	if MostRecent(attempts, func(a *Attempt) bool { return valid(a) && a.Status == StatusApproved }) != nil {
		return UserStatus{Tag: TagApproved}
	}
	if MostRecent(attempts, func(a *Attempt) bool { return valid(a) && a.Status.IsValidOrPending() }) != nil {
		return UserStatus{Tag: TagPending}
	}

	latest := MostRecent(attempts, nil)
	switch {
	case latest == nil:
		return UserStatus{Tag: TagNone}
	case !valid(latest):
		return UserStatus{Tag: TagExpired, Message: "Your " + platformName + " verification has expired."}
	case latest.Status == StatusDenied:
		return UserStatus{Tag: TagMustReverify, Message: latest.ParsedErrorMsg()}
	default:
		return UserStatus{Tag: TagNone}
	}
}
