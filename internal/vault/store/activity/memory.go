// Package activity stores the append-only vault activity log.
package activity

import (
	"context"
	"sync"

	"satvault/internal/vault/models"
)

// InMemory keeps entries per owner in insertion order.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string][]models.ActivityLogEntry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string][]models.ActivityLogEntry)}
}

func (s *InMemory) Append(_ context.Context, entry *models.ActivityLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Owner] = append(s.entries[entry.Owner], *entry)
	return nil
}

// ListByOwner returns the owner's entries newest first.
func (s *InMemory) ListByOwner(_ context.Context, owner string) ([]*models.ActivityLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.entries[owner]
	out := make([]*models.ActivityLogEntry, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		e := stored[i]
		out = append(out, &e)
	}
	return out, nil
}
