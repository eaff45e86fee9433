package models

import (
	"regexp"
	"strings"
	"time"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

const maxNameLen = 255

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{2,30}$`)

// Profile is the account data verification reads: the display name frozen
// onto attempts and the profile image state.
type Profile struct {
	UserID                 id.UserID
	Username               string
	Name                   string
	HasProfileImage        bool
	ProfileImageUploadedAt *time.Time
	UpdatedAt              time.Time
}

func NewProfile(userID id.UserID, username, name string, now time.Time) (*Profile, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	if !usernamePattern.MatchString(username) {
		return nil, dErrors.New(dErrors.CodeValidation, "username must be 2-30 letters, digits, '.', '_' or '-'")
	}
	p := &Profile{UserID: userID, Username: username, UpdatedAt: now}
	if err := p.Rename(name, now); err != nil {
		return nil, err
	}
	return p, nil
}

// Rename sets the display name. Attempts already marked ready keep the
// name they froze.
func (p *Profile) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if len(name) > maxNameLen {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 255 characters")
	}
	p.Name = name
	p.UpdatedAt = now
	return nil
}

func (p *Profile) SetImage(uploaded bool, now time.Time) {
	p.HasProfileImage = uploaded
	if uploaded {
		p.ProfileImageUploadedAt = &now
	} else {
		p.ProfileImageUploadedAt = nil
	}
	p.UpdatedAt = now
}
