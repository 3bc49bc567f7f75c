package models

import (
	dErrors "satvault/pkg/domain-errors"
)

// Status is the vault lifecycle position. Transitions only move forward:
// active -> transfer_pending -> transferred.
type Status string

const (
	StatusActive          Status = "active"
	StatusTransferPending Status = "transfer_pending"
	StatusTransferred     Status = "transferred"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusTransferPending, StatusTransferred:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// CanTransitionTo reports whether next directly follows s.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusActive:
		return next == StatusTransferPending
	case StatusTransferPending:
		return next == StatusTransferred
	default:
		return false
	}
}

// ParseStatus converts a stored value back to a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "unknown vault status: "+raw)
	}
	return s, nil
}
