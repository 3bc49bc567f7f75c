package activitylog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"satvault/internal/vault/models"
	"satvault/internal/vault/store/activity"
	vaultstore "satvault/internal/vault/store/vault"
	dErrors "satvault/pkg/domain-errors"
	"satvault/pkg/requestcontext"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []*models.ActivityLogEntry
}

func (r *recordingSink) Publish(_ context.Context, entry *models.ActivityLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

type LoggerSuite struct {
	suite.Suite
	vaults *vaultstore.InMemory
	sink   *recordingSink
	log    *Logger
	ctx    context.Context
	now    time.Time
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerSuite))
}

func (s *LoggerSuite) SetupTest() {
	s.vaults = vaultstore.NewInMemory()
	s.sink = &recordingSink{}
	s.log = New(activity.NewInMemory(), s.vaults, WithEventSink(s.sink))
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	v, err := models.NewVault("alice", "bc1qA", "bc1qB", 30, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.vaults.Create(s.ctx, v))
}

func (s *LoggerSuite) TestAppend() {
	s.Run("stamps entry with request time", func() {
		entry, err := s.log.Append(s.ctx, "alice", models.ActionCreated, "vault created")
		s.Require().NoError(err)
		s.Equal(s.now, entry.Timestamp)
		s.Equal("vault created", entry.Details)
	})

	s.Run("rejects owners without a vault", func() {
		_, err := s.log.Append(s.ctx, "mallory", models.ActionCreated, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("does not publish until asked", func() {
		s.Empty(s.sink.entries)
	})
}

func (s *LoggerSuite) TestListNewestFirst() {
	first, err := s.log.Append(s.ctx, "alice", models.ActionCreated, "")
	s.Require().NoError(err)
	later := requestcontext.WithTime(s.ctx, s.now.Add(time.Minute))
	second, err := s.log.Append(later, "alice", models.ActionActivityUpdated, "")
	s.Require().NoError(err)

	entries, err := s.log.List(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(second.ID, entries[0].ID)
	s.Equal(first.ID, entries[1].ID)

	none, err := s.log.List(s.ctx, "mallory")
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *LoggerSuite) TestPublish() {
	entry, err := s.log.Append(s.ctx, "alice", models.ActionDeposited, "amount=10")
	s.Require().NoError(err)

	s.log.Publish(s.ctx, entry, nil)

	s.Require().Len(s.sink.entries, 1)
	s.Equal(entry.ID, s.sink.entries[0].ID)
}
