package models

import (
	"strings"
	"time"
	"unicode/utf8"

	dErrors "satvault/pkg/domain-errors"
)

const MaxProfileNameLength = 64

// UserProfile is the caller's display name.
type UserProfile struct {
	Principal string    `json:"-"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUserProfile(principal, name string, now time.Time) (*UserProfile, error) {
	if principal == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if utf8.RuneCountInString(name) > MaxProfileNameLength {
		return nil, dErrors.New(dErrors.CodeValidation, "name must be 64 characters or less")
	}
	return &UserProfile{Principal: principal, Name: name, UpdatedAt: now}, nil
}
