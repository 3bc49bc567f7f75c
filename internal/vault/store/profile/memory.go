// Package profile stores caller display names.
package profile

import (
	"context"
	"sync"

	"satvault/internal/vault/models"
	"satvault/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	profiles map[string]models.UserProfile
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[string]models.UserProfile)}
}

func (s *InMemory) Save(_ context.Context, p *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Principal] = *p
	return nil
}

func (s *InMemory) Find(_ context.Context, principal string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[principal]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}
