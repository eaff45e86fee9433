package models

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

const validity = 365 * 24 * time.Hour

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubSubmitter struct {
	code  int
	err   error
	calls int
}

func (s *stubSubmitter) Submit(_ context.Context, _ *Attempt) (int, error) {
	s.calls++
	return s.code, s.err
}

func newAttempt(t *testing.T, status Status, createdAt time.Time) *Attempt {
	t.Helper()
	a, err := NewAttempt(id.NewUserID(), nil, createdAt)
	require.NoError(t, err)
	a.Status = status
	return a
}

func TestNewAttempt(t *testing.T) {
	t.Run("starts in created with a receipt", func(t *testing.T) {
		a, err := NewAttempt(id.NewUserID(), nil, t0)
		require.NoError(t, err)
		assert.Equal(t, StatusCreated, a.Status)
		assert.NotEmpty(t, a.ReceiptID)
		assert.True(t, a.Display)
		assert.True(t, a.IsOriginal())
		assert.Equal(t, t0, a.CreatedAt)
	})

	t.Run("rejects nil user", func(t *testing.T) {
		_, err := NewAttempt(id.UserID{}, nil, t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("window scoped", func(t *testing.T) {
		w := id.NewWindowID()
		a, err := NewAttempt(id.NewUserID(), &w, t0)
		require.NoError(t, err)
		assert.False(t, a.IsOriginal())
		assert.True(t, a.InWindow(&w))
		assert.False(t, a.InWindow(nil))
	})
}

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusCreated, StatusReady, StatusSubmitted, StatusMustRetry, StatusApproved, StatusDenied}
	legal := map[Action][]Status{
		ActionMarkReady:   {StatusCreated},
		ActionSubmit:      {StatusReady},
		ActionApprove:     {StatusSubmitted, StatusMustRetry, StatusApproved, StatusDenied},
		ActionDeny:        {StatusSubmitted, StatusMustRetry, StatusApproved, StatusDenied},
		ActionSystemError: {StatusSubmitted, StatusMustRetry, StatusApproved, StatusDenied},
	}

	for action, ok := range legal {
		for _, from := range all {
			_, err := Transition(action, from)
			if contains(ok, from) {
				assert.NoError(t, err, "%s from %s", action, from)
			} else {
				assert.True(t, IsInvalidTransition(err), "%s from %s", action, from)
			}
		}
	}

	_, err := Transition(Action("explode"), StatusCreated)
	assert.True(t, IsInvalidTransition(err))
}

func contains(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestMarkReady(t *testing.T) {
	t.Run("freezes the name", func(t *testing.T) {
		a := newAttempt(t, StatusCreated, t0)
		name := "Ada Lovelace"
		require.NoError(t, a.MarkReady(name, t0.Add(time.Minute)))
		name = "Ada King"

		assert.Equal(t, StatusReady, a.Status)
		assert.Equal(t, "Ada Lovelace", a.Name)

		err := a.MarkReady(name, t0.Add(2*time.Minute))
		assert.True(t, IsInvalidTransition(err))
		assert.Equal(t, "Ada Lovelace", a.Name)
	})
}

func TestSubmit(t *testing.T) {
	t.Run("200 moves to submitted", func(t *testing.T) {
		a := newAttempt(t, StatusReady, t0)
		s := &stubSubmitter{code: http.StatusOK}

		require.NoError(t, a.Submit(context.Background(), s, t0.Add(time.Hour)))
		assert.Equal(t, StatusSubmitted, a.Status)
		require.NotNil(t, a.SubmittedAt)
		assert.Equal(t, t0.Add(time.Hour), *a.SubmittedAt)
		assert.Equal(t, 1, s.calls)
	})

	t.Run("non-200 is absorbed as must_retry", func(t *testing.T) {
		a := newAttempt(t, StatusReady, t0)
		s := &stubSubmitter{code: http.StatusBadRequest}

		require.NoError(t, a.Submit(context.Background(), s, t0))
		assert.Equal(t, StatusMustRetry, a.Status)
		assert.Contains(t, a.ErrorMsg, "400")
		assert.Nil(t, a.SubmittedAt)
	})

	t.Run("transport error is absorbed as must_retry", func(t *testing.T) {
		a := newAttempt(t, StatusReady, t0)
		s := &stubSubmitter{err: errors.New("connection refused")}

		require.NoError(t, a.Submit(context.Background(), s, t0))
		assert.Equal(t, StatusMustRetry, a.Status)
		assert.Equal(t, "connection refused", a.ErrorMsg)
	})

	t.Run("rejected from any status but ready", func(t *testing.T) {
		for _, from := range []Status{StatusCreated, StatusSubmitted, StatusMustRetry, StatusApproved, StatusDenied} {
			a := newAttempt(t, from, t0)
			s := &stubSubmitter{code: http.StatusOK}

			err := a.Submit(context.Background(), s, t0)
			assert.True(t, IsInvalidTransition(err), from)
			assert.Equal(t, from, a.Status)
			assert.Zero(t, s.calls, "transport must not be called from %s", from)
		}
	})
}

func TestApproveDeny(t *testing.T) {
	t.Run("approve from submitted", func(t *testing.T) {
		a := newAttempt(t, StatusSubmitted, t0)
		changed, err := a.Approve("reviewer", "SoftwareSecure", t0)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusApproved, a.Status)
		assert.Equal(t, "SoftwareSecure", a.ReviewingService)
	})

	t.Run("approve is idempotent", func(t *testing.T) {
		a := newAttempt(t, StatusApproved, t0)
		changed, err := a.Approve("", "", t0)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("approve overwrites denied", func(t *testing.T) {
		a := newAttempt(t, StatusDenied, t0)
		a.ErrorMsg = "bad photo"
		changed, err := a.Approve("", "", t0)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusApproved, a.Status)
		assert.Empty(t, a.ErrorMsg)
	})

	t.Run("deny stores the reason and overwrites approved", func(t *testing.T) {
		a := newAttempt(t, StatusApproved, t0)
		changed, err := a.Deny(`[{"photoIdReasons": ["Not provided"]}]`, "id_image_missing", "", "SoftwareSecure", t0)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusDenied, a.Status)
		assert.Equal(t, "id_image_missing", a.ErrorCode)
	})

	t.Run("deny is idempotent and keeps the first reason", func(t *testing.T) {
		a := newAttempt(t, StatusDenied, t0)
		a.ErrorMsg = "first"
		changed, err := a.Deny("second", "", "", "", t0)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, "first", a.ErrorMsg)
	})

	t.Run("illegal before submission", func(t *testing.T) {
		for _, from := range []Status{StatusCreated, StatusReady} {
			a := newAttempt(t, from, t0)
			_, err := a.Approve("", "", t0)
			assert.True(t, IsInvalidTransition(err))
			_, err = a.Deny("x", "", "", "", t0)
			assert.True(t, IsInvalidTransition(err))
			assert.Equal(t, from, a.Status)
		}
	})
}

func TestSystemError(t *testing.T) {
	a := newAttempt(t, StatusMustRetry, t0)
	changed, err := a.SystemError("vendor down", "", "SoftwareSecure", t0)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusMustRetry, a.Status)
	assert.Equal(t, "vendor down", a.ErrorMsg)

	decided := newAttempt(t, StatusApproved, t0)
	changed, err = decided.SystemError("late", "", "", t0)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StatusApproved, decided.Status)
	assert.Empty(t, decided.ErrorMsg)

	early := newAttempt(t, StatusReady, t0)
	_, err = early.SystemError("x", "", "", t0)
	assert.True(t, IsInvalidTransition(err))
}

func TestParsedErrorMsg(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"photo id not provided", `[{"photoIdReasons": ["Not provided"]}]`, "No photo ID was provided."},
		{"sorted categories", `[{"userPhotoReasons": ["Image not clear"], "photoIdReasons": ["Text not clear"]}]`,
			"We couldn't read your name from your photo ID image., The image of your face was not clear."},
		{"several reasons in one category", `[{"photoIdReasons": ["Not provided", "Text not clear"]}]`,
			"No photo ID was provided., We couldn't read your name from your photo ID image."},
		{"general", `[{"generalReasons": ["Name mismatch"]}]`,
			"The name associated with your account and the name on your ID do not match."},
		{"not json", "this is not json", genericPhotoError},
		{"empty list", "[]", genericPhotoError},
		{"wrong shape", `{"photoIdReasons": ["Not provided"]}`, genericPhotoError},
		{"unknown category", `[{"foo": ["bar"]}]`, genericPhotoError},
		{"unknown reason", `[{"photoIdReasons": ["Blurry cat"]}]`, genericPhotoError},
		{"empty", "", genericPhotoError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Attempt{ErrorMsg: tt.msg}
			assert.Equal(t, tt.want, a.ParsedErrorMsg())
		})
	}
}

func TestActiveAt(t *testing.T) {
	a := newAttempt(t, StatusApproved, t0)
	assert.True(t, a.ActiveAt(t0, validity))
	assert.True(t, a.ActiveAt(t0.Add(validity), validity))
	assert.False(t, a.ActiveAt(t0.Add(-time.Second), validity))
	assert.False(t, a.ActiveAt(t0.Add(validity+time.Second), validity))
}

func TestVerificationForDatetime(t *testing.T) {
	a := newAttempt(t, StatusApproved, t0)
	candidates := []*Attempt{a}

	before := t0.Add(validity - time.Second)
	assert.Same(t, a, VerificationForDatetime(&before, candidates, validity))

	after := t0.Add(validity + time.Second)
	assert.Nil(t, VerificationForDatetime(&after, candidates, validity))

	t.Run("newest covering candidate wins", func(t *testing.T) {
		b := newAttempt(t, StatusApproved, t0.Add(24*time.Hour))
		deadline := t0.Add(48 * time.Hour)
		assert.Same(t, b, VerificationForDatetime(&deadline, []*Attempt{a, b}, validity))

		early := t0.Add(time.Hour)
		assert.Same(t, a, VerificationForDatetime(&early, []*Attempt{a, b}, validity))
	})

	t.Run("no deadline picks newest", func(t *testing.T) {
		b := newAttempt(t, StatusApproved, t0.Add(time.Hour))
		assert.Same(t, b, VerificationForDatetime(nil, []*Attempt{a, b}, validity))
		assert.Nil(t, VerificationForDatetime(nil, nil, validity))
	})
}

func TestMostRecentTieBreak(t *testing.T) {
	a := newAttempt(t, StatusReady, t0)
	a.Seq = 1
	b := newAttempt(t, StatusReady, t0)
	b.Seq = 2
	assert.Same(t, b, MostRecent([]*Attempt{b, a}, nil))
	assert.Same(t, b, MostRecent([]*Attempt{a, b}, nil))
}

func TestComputeUserStatus(t *testing.T) {
	now := t0.Add(24 * time.Hour)

	t.Run("no attempts", func(t *testing.T) {
		got := ComputeUserStatus(nil, now, validity, "Veritas")
		assert.Equal(t, TagNone, got.Tag)
	})

	t.Run("approved", func(t *testing.T) {
		got := ComputeUserStatus([]*Attempt{newAttempt(t, StatusApproved, t0)}, now, validity, "Veritas")
		assert.Equal(t, UserStatus{Tag: TagApproved}, got)
	})

	t.Run("approved wins over a later denial", func(t *testing.T) {
		denied := newAttempt(t, StatusDenied, t0.Add(time.Hour))
		got := ComputeUserStatus([]*Attempt{newAttempt(t, StatusApproved, t0), denied}, now, validity, "Veritas")
		assert.Equal(t, TagApproved, got.Tag)
	})

	t.Run("pending", func(t *testing.T) {
		for _, s := range []Status{StatusSubmitted, StatusMustRetry} {
			got := ComputeUserStatus([]*Attempt{newAttempt(t, s, t0)}, now, validity, "Veritas")
			assert.Equal(t, TagPending, got.Tag, s)
		}
	})

	t.Run("denied needs reverification", func(t *testing.T) {
		a := newAttempt(t, StatusDenied, t0)
		a.ErrorMsg = `[{"photoIdReasons": ["Not provided"]}]`
		got := ComputeUserStatus([]*Attempt{a}, now, validity, "Veritas")
		assert.Equal(t, UserStatus{Tag: TagMustReverify, Message: "No photo ID was provided."}, got)
	})

	t.Run("expired approval", func(t *testing.T) {
		a := newAttempt(t, StatusApproved, t0)
		got := ComputeUserStatus([]*Attempt{a}, t0.Add(validity+time.Hour), validity, "Veritas")
		assert.Equal(t, UserStatus{Tag: TagExpired, Message: "Your Veritas verification has expired."}, got)
	})

	t.Run("unsubmitted leftovers report none", func(t *testing.T) {
		got := ComputeUserStatus([]*Attempt{newAttempt(t, StatusReady, t0)}, now, validity, "Veritas")
		assert.Equal(t, TagNone, got.Tag)
	})
}

func TestNewWindow(t *testing.T) {
	w, err := NewWindow("course-v1:Org+Course+Run", t0, t0.Add(time.Hour), t0)
	require.NoError(t, err)
	assert.True(t, w.Contains(t0.Add(time.Minute)))
	assert.False(t, w.Contains(t0.Add(2*time.Hour)))

	_, err = NewWindow("course-v1:Org+Course+Run", t0, t0, t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewWindow("", t0, t0.Add(time.Hour), t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCheckpointAndLedger(t *testing.T) {
	_, err := NewCheckpoint("course", "this-checkpoint-name-is-way-too-long-to-store", t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	cp, err := NewCheckpoint("course", " midterm ", t0)
	require.NoError(t, err)
	assert.Equal(t, "midterm", cp.Name)

	_, err = NewStatusEntry(cp.ID, id.NewUserID(), LedgerStatus("lost"), "block", t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	e, err := NewStatusEntry(cp.ID, id.NewUserID(), LedgerApproved, "block", t0)
	require.NoError(t, err)
	assert.Equal(t, "block", e.LocationID)

	_, err = NewSkipRecord(cp.ID, id.NewUserID(), "", t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
