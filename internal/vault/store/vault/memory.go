package vault

import (
	"context"
	"sort"
	"sync"
	"time"

	"satvault/internal/vault/models"
	"satvault/pkg/platform/sentinel"
)

type entry struct {
	mu    sync.Mutex
	vault *models.Vault
}

// InMemory keeps vaults in a map with one mutex per vault, so an Execute on one
// owner never waits on another.
type InMemory struct {
	mu     sync.RWMutex
	vaults map[string]*entry
}

func NewInMemory() *InMemory {
	return &InMemory{vaults: make(map[string]*entry)}
}

// Create inserts v. Returns sentinel.ErrAlreadyUsed if the owner already has a vault.
func (s *InMemory) Create(_ context.Context, v *models.Vault) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vaults[v.Owner]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.vaults[v.Owner] = &entry{vault: v.Clone()}
	return nil
}

func (s *InMemory) FindByOwner(_ context.Context, owner string) (*models.Vault, error) {
	e := s.lookup(owner)
	if e == nil {
		return nil, sentinel.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vault.Clone(), nil
}

// Execute runs validate and mutate against a private copy while holding the
// vault's lock, and publishes the copy only if validate passed.
func (s *InMemory) Execute(ctx context.Context, owner string, validate ValidateFunc, mutate MutateFunc) (*models.Vault, error) {
	e := s.lookup(owner)
	if e == nil {
		return nil, sentinel.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	working := e.vault.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	e.vault = working
	return working.Clone(), nil
}

// ListDue returns vaults the trigger should act on at now, oldest deadline first.
func (s *InMemory) ListDue(_ context.Context, now time.Time) ([]*models.Vault, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.vaults))
	for _, e := range s.vaults {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var due []*models.Vault
	for _, e := range entries {
		e.mu.Lock()
		if e.vault.IsDue(now) {
			due = append(due, e.vault.Clone())
		}
		e.mu.Unlock()
	}
	sort.Slice(due, func(i, j int) bool {
		return dueAt(due[i]).Before(dueAt(due[j]))
	})
	return due, nil
}

func (s *InMemory) lookup(owner string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vaults[owner]
}

func dueAt(v *models.Vault) time.Time {
	if v.Status == models.StatusTransferPending {
		return v.NextAttemptAt
	}
	return v.Deadline()
}
