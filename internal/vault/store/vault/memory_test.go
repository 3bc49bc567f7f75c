package vault

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"satvault/internal/vault/models"
	id "satvault/pkg/domain"
	dErrors "satvault/pkg/domain-errors"
	"satvault/pkg/platform/sentinel"
)

var t0 = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

type VaultStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *VaultStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestVaultStoreSuite(t *testing.T) {
	suite.Run(t, new(VaultStoreSuite))
}

func (s *VaultStoreSuite) newVault(owner string, days int) *models.Vault {
	v, err := models.NewVault(owner, "bc1qA", "bc1qB", days, t0)
	s.Require().NoError(err)
	return v
}

func (s *VaultStoreSuite) TestCreateAndFind() {
	s.Run("creates and finds vault by owner", func() {
		v := s.newVault("alice", 30)
		s.Require().NoError(s.store.Create(s.ctx, v))

		found, err := s.store.FindByOwner(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(v.PrimaryAddress, found.PrimaryAddress)
		s.Equal(models.StatusActive, found.Status)
	})

	s.Run("rejects a second vault for the same owner without changing the first", func() {
		v := s.newVault("bob", 30)
		s.Require().NoError(s.store.Create(s.ctx, v))

		dup, err := models.NewVault("bob", "bc1qX", "bc1qY", 90, t0.Add(time.Hour))
		s.Require().NoError(err)
		s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)

		found, err := s.store.FindByOwner(s.ctx, "bob")
		s.Require().NoError(err)
		s.Equal(v, found)
	})

	s.Run("returns ErrNotFound for unknown owner", func() {
		_, err := s.store.FindByOwner(s.ctx, "nobody")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("hands out copies", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newVault("carol", 30)))
		found, err := s.store.FindByOwner(s.ctx, "carol")
		s.Require().NoError(err)
		found.Balance = 99

		again, err := s.store.FindByOwner(s.ctx, "carol")
		s.Require().NoError(err)
		s.Zero(again.Balance)
	})
}

func (s *VaultStoreSuite) TestExecute() {
	s.Require().NoError(s.store.Create(s.ctx, s.newVault("alice", 30)))

	s.Run("applies mutation when validation passes", func() {
		updated, err := s.store.Execute(s.ctx, "alice",
			func(v *models.Vault) error { return v.CanDeposit(10) },
			func(v *models.Vault) { v.ApplyDeposit(10, t0.Add(time.Hour)) },
		)
		s.Require().NoError(err)
		s.Equal(uint64(10), updated.Balance)
	})

	s.Run("leaves state untouched when validation fails", func() {
		_, err := s.store.Execute(s.ctx, "alice",
			func(v *models.Vault) error { return v.CanApplyTransfer(10) },
			func(v *models.Vault) { v.ApplyTransfer(10, t0) },
		)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		found, err := s.store.FindByOwner(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, found.Status)
		s.Equal(uint64(10), found.Balance)
	})

	s.Run("returns ErrNotFound for unknown owner", func() {
		_, err := s.store.Execute(s.ctx, "nobody",
			func(*models.Vault) error { return nil },
			func(*models.Vault) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestMarkPendingIsACompareAndSet races many gate attempts on one vault.
func (s *VaultStoreSuite) TestMarkPendingIsACompareAndSet() {
	s.Require().NoError(s.store.Create(s.ctx, s.newVault("alice", 30)))
	now := t0.Add(31 * models.Day)

	const goroutines = 50
	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, "alice",
				func(v *models.Vault) error { return v.CanMarkPending() },
				func(v *models.Vault) { v.ApplyPending(id.NewTransferID(), now) },
			)
			if err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
}

func (s *VaultStoreSuite) TestListDue() {
	now := t0.Add(100 * models.Day)

	s.Require().NoError(s.store.Create(s.ctx, s.newVault("expired", 30)))
	s.Require().NoError(s.store.Create(s.ctx, s.newVault("fresh", 365)))

	retrying := s.newVault("retrying", 30)
	retrying.ApplyPending(id.NewTransferID(), now.Add(-time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, retrying))

	waiting := s.newVault("waiting", 30)
	waiting.ApplyPending(id.NewTransferID(), now)
	waiting.ApplyAttemptFailure(now.Add(time.Minute), now)
	s.Require().NoError(s.store.Create(s.ctx, waiting))

	done := s.newVault("done", 30)
	done.ApplyPending(id.NewTransferID(), t0)
	done.ApplyTransfer(0, t0)
	s.Require().NoError(s.store.Create(s.ctx, done))

	due, err := s.store.ListDue(s.ctx, now)
	s.Require().NoError(err)

	owners := make([]string, 0, len(due))
	for _, v := range due {
		owners = append(owners, v.Owner)
	}
	s.ElementsMatch([]string{"expired", "retrying"}, owners)
}
