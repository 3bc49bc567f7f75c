//go:build integration

package message_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"satvault/internal/vault/models"
	"satvault/internal/vault/store/message"
	"satvault/internal/vault/store/vault"
	"satvault/pkg/platform/sentinel"
	"satvault/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	vaults   *vault.PostgresStore
	store    *message.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.vaults = vault.NewPostgres(s.postgres.DB)
	s.store = message.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "vault_messages", "vault_activity_log", "vaults"))
}

func (s *PostgresStoreSuite) TestAppendAndListOldestFirst() {
	ctx := context.Background()
	now := time.Now().UTC()
	v, err := models.NewVault("owner-"+uuid.NewString(), "bc1qA", "bc1qB", 30, now)
	s.Require().NoError(err)
	s.Require().NoError(s.vaults.Create(ctx, v))

	first, err := models.NewEncryptedMessage(v.Owner, "bc1qB", []byte{0x01, 0x02}, now)
	s.Require().NoError(err)
	// stamped earlier than first; append order still wins
	second, err := models.NewEncryptedMessage(v.Owner, "bc1qB", []byte{0x03}, now.Add(-time.Minute))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))

	got, err := s.store.ListByOwner(ctx, v.Owner)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(first.ID, got[0].ID)
	s.Equal([]byte{0x01, 0x02}, got[0].Ciphertext)
	s.Equal(second.ID, got[1].ID)
}

func (s *PostgresStoreSuite) TestAppendRequiresVault() {
	msg, err := models.NewEncryptedMessage("ghost", "bc1qB", []byte{0x01}, time.Now())
	s.Require().NoError(err)
	s.Require().ErrorIs(s.store.Append(context.Background(), msg), sentinel.ErrNotFound)
}
