package models

import (
	"time"

	id "satvault/pkg/domain"
	dErrors "satvault/pkg/domain-errors"
)

// Action tags an activity log entry.
type Action string

const (
	ActionCreated               Action = "created"
	ActionActivityUpdated       Action = "activity_updated"
	ActionMessageAdded          Action = "message_added"
	ActionDeposited             Action = "deposited"
	ActionAutoTransferAttempted Action = "auto_transfer_attempted"
	ActionAutoTransferSucceeded Action = "auto_transfer_succeeded"
	ActionAutoTransferFailed    Action = "auto_transfer_failed"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionCreated, ActionActivityUpdated, ActionMessageAdded, ActionDeposited,
		ActionAutoTransferAttempted, ActionAutoTransferSucceeded, ActionAutoTransferFailed:
		return true
	}
	return false
}

func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "unknown activity action: "+raw)
	}
	return a, nil
}

// ActivityLogEntry is one immutable audit record for a vault.
type ActivityLogEntry struct {
	ID        id.EntryID `json:"id"`
	Owner     string     `json:"-"`
	Action    Action     `json:"action"`
	Details   string     `json:"details"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewActivityLogEntry(owner string, action Action, details string, now time.Time) (*ActivityLogEntry, error) {
	if owner == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "log entry owner is required")
	}
	if !action.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown activity action: "+string(action))
	}
	return &ActivityLogEntry{
		ID:        id.NewEntryID(),
		Owner:     owner,
		Action:    action,
		Details:   details,
		Timestamp: now,
	}, nil
}
