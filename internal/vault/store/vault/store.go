// Package vault persists vault aggregates. Both implementations expose the
// same Execute primitive: load under an exclusive per-owner lock, validate,
// mutate, write back. Status transitions (recordActivity, markPending,
// applyTransfer) are Execute calls, so the active -> transfer_pending
// compare-and-set never exposes an intermediate state.
package vault

import (
	"context"
	"time"

	"satvault/internal/vault/models"
)

// ValidateFunc inspects the current vault and rejects the mutation by returning an error.
type ValidateFunc = func(v *models.Vault) error

// MutateFunc applies the change. It runs only after ValidateFunc succeeds.
type MutateFunc = func(v *models.Vault)

// Store is implemented by InMemory and PostgresStore.
type Store interface {
	Create(ctx context.Context, v *models.Vault) error
	FindByOwner(ctx context.Context, owner string) (*models.Vault, error)
	Execute(ctx context.Context, owner string, validate ValidateFunc, mutate MutateFunc) (*models.Vault, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Vault, error)
}
