// Package domain holds typed identifiers shared across the vault packages.
// Each is a distinct named UUID so an entry ID can never be passed where a
// transfer ID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "satvault/pkg/domain-errors"
)

type (
	// EntryID identifies one activity log entry.
	EntryID uuid.UUID
	// MessageID identifies one encrypted heir message.
	MessageID uuid.UUID
	// TransferID identifies one automatic transfer. It is created when a vault
	// enters transfer_pending and doubles as the ledger idempotency key.
	TransferID uuid.UUID
)

func NewEntryID() EntryID       { return EntryID(uuid.New()) }
func NewMessageID() MessageID   { return MessageID(uuid.New()) }
func NewTransferID() TransferID { return TransferID(uuid.New()) }

func (id EntryID) String() string    { return uuid.UUID(id).String() }
func (id MessageID) String() string  { return uuid.UUID(id).String() }
func (id TransferID) String() string { return uuid.UUID(id).String() }

func (id EntryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id MessageID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id TransferID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id EntryID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id MessageID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id TransferID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func ParseEntryID(s string) (EntryID, error) {
	u, err := parseUUID(s, "entry ID")
	return EntryID(u), err
}

func ParseMessageID(s string) (MessageID, error) {
	u, err := parseUUID(s, "message ID")
	return MessageID(u), err
}

func ParseTransferID(s string) (TransferID, error) {
	u, err := parseUUID(s, "transfer ID")
	return TransferID(u), err
}

// parseUUID rejects empty, malformed and nil UUIDs at trust boundaries.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
