// Package sealing encrypts heir messages with NaCl anonymous sealed boxes
// (X25519 + XSalsa20-Poly1305). Only the holder of the heir's private key can
// open a sealed message; the sender keeps no key material.
package sealing

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/box"

	dErrors "satvault/pkg/domain-errors"
)

const KeySize = 32

var ErrOpenFailed = errors.New("sealed message could not be opened")

// Sealer implements encrypt/decrypt over sealed boxes. The zero value uses crypto/rand.
type Sealer struct {
	rand io.Reader
}

func New() *Sealer {
	return &Sealer{rand: rand.Reader}
}

func (s *Sealer) random() io.Reader {
	if s == nil || s.rand == nil {
		return rand.Reader
	}
	return s.rand
}

// GenerateKeyPair returns a fresh X25519 key pair for an heir.
func (s *Sealer) GenerateKeyPair() (publicKey, privateKey *[KeySize]byte, err error) {
	return box.GenerateKey(s.random())
}

// Encrypt seals plaintext for recipientPublicKey.
func (s *Sealer) Encrypt(plaintext []byte, recipientPublicKey *[KeySize]byte) ([]byte, error) {
	if recipientPublicKey == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient public key is required")
	}
	if len(plaintext) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "plaintext is required")
	}
	return box.SealAnonymous(nil, plaintext, recipientPublicKey, s.random())
}

// Decrypt opens a sealed message with the recipient's key pair.
func (s *Sealer) Decrypt(ciphertext []byte, recipientPublicKey, recipientPrivateKey *[KeySize]byte) ([]byte, error) {
	if recipientPublicKey == nil || recipientPrivateKey == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient key pair is required")
	}
	plaintext, ok := box.OpenAnonymous(nil, ciphertext, recipientPublicKey, recipientPrivateKey)
	if !ok {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}

// ParsePublicKey decodes a standard base64 X25519 public key.
func ParsePublicKey(encoded string) (*[KeySize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "public key must be base64")
	}
	if len(raw) != KeySize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "public key must be 32 bytes")
	}
	var key [KeySize]byte
	copy(key[:], raw)
	return &key, nil
}

func EncodeKey(key *[KeySize]byte) string {
	return base64.StdEncoding.EncodeToString(key[:])
}
