package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "satvault/pkg/domain-errors"
)

func TestNewEncryptedMessage(t *testing.T) {
	t.Run("copies ciphertext", func(t *testing.T) {
		data := []byte{1, 2, 3}
		msg, err := NewEncryptedMessage("owner-1", "bc1qB", data, t0)
		require.NoError(t, err)
		data[0] = 9
		assert.Equal(t, []byte{1, 2, 3}, msg.Ciphertext)
		assert.False(t, msg.ID.IsNil())
	})

	t.Run("rejects empty and oversized ciphertext", func(t *testing.T) {
		_, err := NewEncryptedMessage("owner-1", "bc1qB", nil, t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = NewEncryptedMessage("owner-1", "bc1qB", make([]byte, MaxCiphertextBytes+1), t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("validates recipient", func(t *testing.T) {
		_, err := NewEncryptedMessage("owner-1", "", []byte{1}, t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})
}

func TestNewActivityLogEntry(t *testing.T) {
	entry, err := NewActivityLogEntry("owner-1", ActionDeposited, "amount=5", t0)
	require.NoError(t, err)
	assert.Equal(t, ActionDeposited, entry.Action)

	_, err = NewActivityLogEntry("owner-1", Action("rewound"), "", t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestNewUserProfile(t *testing.T) {
	p, err := NewUserProfile("owner-1", "  Satoshi ", t0)
	require.NoError(t, err)
	assert.Equal(t, "Satoshi", p.Name)

	_, err = NewUserProfile("owner-1", "   ", t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
