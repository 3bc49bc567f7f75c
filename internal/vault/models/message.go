package models

import (
	"bytes"
	"time"

	id "satvault/pkg/domain"
	dErrors "satvault/pkg/domain-errors"
)

const MaxCiphertextBytes = 64 << 10

// EncryptedMessage is an opaque sealed note from the owner to the heir.
// The service never sees plaintext.
type EncryptedMessage struct {
	ID               id.MessageID `json:"id"`
	Owner            string       `json:"-"`
	RecipientAddress string       `json:"recipient_address"`
	Ciphertext       []byte       `json:"ciphertext"`
	CreatedAt        time.Time    `json:"created_at"`
}

func NewEncryptedMessage(owner, recipient string, ciphertext []byte, now time.Time) (*EncryptedMessage, error) {
	if err := ValidateAddress(recipient); err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ciphertext is required")
	}
	if len(ciphertext) > MaxCiphertextBytes {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ciphertext must be 64 KiB or less")
	}
	return &EncryptedMessage{
		ID:               id.NewMessageID(),
		Owner:            owner,
		RecipientAddress: recipient,
		Ciphertext:       bytes.Clone(ciphertext),
		CreatedAt:        now,
	}, nil
}
