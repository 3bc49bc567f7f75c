// Package message stores sealed heir messages. Access policy lives in
// internal/vault/messages; this layer only appends and lists.
package message

import (
	"bytes"
	"context"
	"sync"

	"satvault/internal/vault/models"
)

type InMemory struct {
	mu       sync.RWMutex
	messages map[string][]models.EncryptedMessage
}

func NewInMemory() *InMemory {
	return &InMemory{messages: make(map[string][]models.EncryptedMessage)}
}

func (s *InMemory) Append(_ context.Context, msg *models.EncryptedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *msg
	stored.Ciphertext = bytes.Clone(msg.Ciphertext)
	s.messages[msg.Owner] = append(s.messages[msg.Owner], stored)
	return nil
}

// ListByOwner returns the owner's messages oldest first.
func (s *InMemory) ListByOwner(_ context.Context, owner string) ([]*models.EncryptedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.messages[owner]
	out := make([]*models.EncryptedMessage, 0, len(stored))
	for _, m := range stored {
		m.Ciphertext = bytes.Clone(m.Ciphertext)
		out = append(out, &m)
	}
	return out, nil
}
