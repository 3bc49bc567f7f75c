package trigger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"satvault/internal/ledger"
	"satvault/internal/ledger/mocks"
	"satvault/internal/vault/activitylog"
	"satvault/internal/vault/models"
	"satvault/internal/vault/store/activity"
	vaultstore "satvault/internal/vault/store/vault"
	"satvault/pkg/requestcontext"
	"satvault/pkg/testutil"
)

// countingClient records every call that reaches the ledger, including
// replays the ledger itself would deduplicate.
type countingClient struct {
	ledger.Client
	calls atomic.Int32
}

func (c *countingClient) Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.Receipt, error) {
	c.calls.Add(1)
	return c.Client.Transfer(ctx, req)
}

type TriggerSuite struct {
	suite.Suite
	vaults  *vaultstore.InMemory
	log     *activitylog.Logger
	ledger  *ledger.Memory
	client  *countingClient
	metrics *Metrics
	trigger *Trigger
	clock   *testutil.Clock
	created time.Time
}

func TestTriggerSuite(t *testing.T) {
	suite.Run(t, new(TriggerSuite))
}

func (s *TriggerSuite) SetupTest() {
	s.vaults = vaultstore.NewInMemory()
	s.log = activitylog.New(activity.NewInMemory(), s.vaults)
	s.ledger = ledger.NewMemory()
	s.client = &countingClient{Client: s.ledger}
	s.metrics = NewMetrics(prometheus.NewRegistry())
	s.created = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.clock = testutil.NewClock(s.created)
	s.trigger = s.newTrigger(s.client, WithMetrics(s.metrics))
}

func (s *TriggerSuite) newTrigger(client ledger.Client, opts ...Option) *Trigger {
	return New(s.vaults, s.log, client, append([]Option{WithClock(s.clock.Now)}, opts...)...)
}

func (s *TriggerSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *TriggerSuite) sweepAt(trigger *Trigger, t time.Time) SweepResult {
	s.clock.Set(t)
	result, err := trigger.Sweep(context.Background())
	s.Require().NoError(err)
	return result
}

func (s *TriggerSuite) createVault(owner string, days int, balance uint64) {
	v, err := models.NewVault(owner, "bc1q"+owner+"primary", "bc1q"+owner+"heir", days, s.created)
	s.Require().NoError(err)
	v.Balance = balance
	s.Require().NoError(s.vaults.Create(s.at(s.created), v))
	_, err = s.log.Append(s.at(s.created), owner, models.ActionCreated, "vault created")
	s.Require().NoError(err)
}

func (s *TriggerSuite) vault(owner string) *models.Vault {
	v, err := s.vaults.FindByOwner(context.Background(), owner)
	s.Require().NoError(err)
	return v
}

func (s *TriggerSuite) actions(owner string) []models.Action {
	entries, err := s.log.List(context.Background(), owner)
	s.Require().NoError(err)
	out := make([]models.Action, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func (s *TriggerSuite) TestTransfersAfterInactivityPeriod() {
	s.createVault("alice", 90, 50_000)

	result := s.sweepAt(s.trigger, s.created.Add(91*models.Day))
	s.Equal(SweepResult{Due: 1, Transferred: 1}, result)

	v := s.vault("alice")
	s.Equal(models.StatusTransferred, v.Status)
	s.Zero(v.Balance)
	s.Require().NotNil(v.TransferredAt)
	s.Equal(uint64(50_000), s.ledger.Balance("bc1qaliceheir"))
	s.Equal([]models.Action{
		models.ActionAutoTransferSucceeded,
		models.ActionAutoTransferAttempted,
		models.ActionCreated,
	}, s.actions("alice"))
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.Attempts))
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.Successes))
}

func (s *TriggerSuite) TestActivityResetsTimer() {
	s.createVault("alice", 90, 10)

	_, err := s.vaults.Execute(context.Background(), "alice", func(v *models.Vault) error {
		return v.CanRecordActivity()
	}, func(v *models.Vault) {
		v.ApplyActivity(s.created.Add(89 * models.Day))
	})
	s.Require().NoError(err)

	result := s.sweepAt(s.trigger, s.created.Add(178*models.Day))
	s.Zero(result.Due)
	s.Equal(models.StatusActive, s.vault("alice").Status)
	s.Zero(s.client.calls.Load())
}

func (s *TriggerSuite) TestEligibilityBoundary() {
	s.createVault("alice", 30, 1)

	deadline := s.created.Add(30 * models.Day)
	s.sweepAt(s.trigger, deadline.Add(-time.Second))
	s.Equal(models.StatusActive, s.vault("alice").Status)

	s.sweepAt(s.trigger, deadline)
	s.Equal(models.StatusTransferred, s.vault("alice").Status)
}

func (s *TriggerSuite) TestExactlyOneTransfer() {
	s.Run("concurrent sweeps", func() {
		s.createVault("bob", 30, 700)
		s.clock.Set(s.created.Add(31 * models.Day))

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.trigger.Sweep(context.Background())
			}()
		}
		wg.Wait()

		s.Equal(int32(1), s.client.calls.Load())
		s.Equal(1, s.ledger.Executed())
		s.Equal(models.StatusTransferred, s.vault("bob").Status)
	})

	s.Run("repeated sweeps", func() {
		s.createVault("carol", 30, 5)
		before := s.client.calls.Load()
		for day := 31; day < 40; day++ {
			s.sweepAt(s.trigger, s.created.Add(time.Duration(day)*models.Day))
		}
		s.Equal(before+1, s.client.calls.Load())
	})

	s.Run("zero balance still completes the lifecycle", func() {
		s.createVault("dave", 30, 0)
		s.sweepAt(s.trigger, s.created.Add(31*models.Day))
		s.Equal(models.StatusTransferred, s.vault("dave").Status)
	})
}

func (s *TriggerSuite) TestFailedAttemptIsRetriedWithBackoff() {
	ctrl := gomock.NewController(s.T())
	client := mocks.NewMockClient(ctrl)
	trigger := s.newTrigger(client, WithConfig(Config{RetryInitial: 30 * time.Second, RetryMax: time.Hour}))
	s.createVault("erin", 30, 900)

	first := s.created.Add(31 * models.Day)
	var ids []string
	client.EXPECT().Transfer(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ledger.TransferRequest) (*ledger.Receipt, error) {
			ids = append(ids, req.ID)
			return nil, errors.New("signing quorum unavailable")
		})

	result := s.sweepAt(trigger, first)
	s.Equal(1, result.Failed)

	v := s.vault("erin")
	s.Equal(models.StatusTransferPending, v.Status)
	s.Equal(1, v.TransferAttempts)
	s.Equal(first.Add(30*time.Second), v.NextAttemptAt)
	s.Equal(uint64(900), v.Balance)
	s.Equal([]models.Action{
		models.ActionAutoTransferFailed,
		models.ActionAutoTransferAttempted,
		models.ActionCreated,
	}, s.actions("erin"))

	// not yet due: the mock fails the test if called
	s.sweepAt(trigger, first.Add(10*time.Second))

	client.EXPECT().Transfer(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ledger.TransferRequest) (*ledger.Receipt, error) {
			ids = append(ids, req.ID)
			s.Equal(uint64(900), req.Amount)
			s.Equal("bc1qerinprimary", req.From)
			s.Equal("bc1qerinheir", req.To)
			return &ledger.Receipt{ID: req.ID, TxID: "tx-9", Amount: req.Amount}, nil
		})
	result = s.sweepAt(trigger, first.Add(30*time.Second))
	s.Equal(1, result.Transferred)

	s.Require().Len(ids, 2)
	s.Equal(ids[0], ids[1], "retries reuse the transfer id")
	v = s.vault("erin")
	s.Equal(models.StatusTransferred, v.Status)
	s.Equal(2, v.TransferAttempts)
	s.Len(s.actions("erin"), 5)
}

func (s *TriggerSuite) TestSlowVaultDoesNotBlockOthers() {
	s.createVault("slow", 30, 1)
	s.createVault("fast", 30, 1)

	release := make(chan struct{})
	client := &blockingClient{Client: s.ledger, blockFrom: "bc1qslowprimary", release: release}
	trigger := s.newTrigger(client, WithConfig(Config{Concurrency: 2}))

	s.clock.Set(s.created.Add(31 * models.Day))
	done := make(chan SweepResult)
	go func() {
		result, _ := trigger.Sweep(context.Background())
		done <- result
	}()

	s.Eventually(func() bool {
		v, err := s.vaults.FindByOwner(context.Background(), "fast")
		return err == nil && v.Status == models.StatusTransferred
	}, 2*time.Second, 10*time.Millisecond)
	s.NotEqual(models.StatusTransferred, s.vault("slow").Status)

	close(release)
	result := <-done
	s.Equal(2, result.Transferred)
}

// A vault that waits for a sweep slot is gated at the time it gets the slot,
// so its entries land after anything the owner wrote while it waited.
func (s *TriggerSuite) TestStepsAreStampedWhenTheyRun() {
	s.createVault("aslow", 30, 1)
	s.createVault("bwait", 31, 1)

	release := make(chan struct{})
	client := &blockingClient{Client: s.ledger, blockFrom: "bc1qaslowprimary", release: release}
	trigger := s.newTrigger(client, WithConfig(Config{Concurrency: 1}))

	sweepStart := s.created.Add(32 * models.Day)
	s.clock.Set(sweepStart)
	done := make(chan SweepResult)
	go func() {
		result, _ := trigger.Sweep(context.Background())
		done <- result
	}()

	s.Eventually(func() bool {
		return s.vault("aslow").Status == models.StatusTransferPending
	}, 2*time.Second, 5*time.Millisecond)

	later := s.clock.Advance(5 * time.Minute)
	_, err := s.log.Append(s.at(later), "bwait", models.ActionMessageAdded, "message for bc1qbwaitheir")
	s.Require().NoError(err)
	close(release)
	s.Equal(2, (<-done).Transferred)

	entries, err := s.log.List(context.Background(), "bwait")
	s.Require().NoError(err)
	s.Equal([]models.Action{
		models.ActionAutoTransferSucceeded,
		models.ActionAutoTransferAttempted,
		models.ActionMessageAdded,
		models.ActionCreated,
	}, s.actions("bwait"))
	for i := 1; i < len(entries); i++ {
		s.False(entries[i-1].Timestamp.Before(entries[i].Timestamp),
			"%s stamped before the older %s", entries[i-1].Action, entries[i].Action)
	}

	slow := s.vault("aslow")
	s.Require().NotNil(slow.TransferredAt)
	s.Equal(later, *slow.TransferredAt, "completion is stamped when the ledger returned")
	s.Equal(later, entries[1].Timestamp, "gate runs at slot time, not sweep start")
}

// listingStore records every ListDue call the trigger makes.
type listingStore struct {
	*vaultstore.InMemory
	mu    sync.Mutex
	calls []listCall
}

type listCall struct {
	now    time.Time
	owners []string
}

func (l *listingStore) ListDue(ctx context.Context, now time.Time) ([]*models.Vault, error) {
	due, err := l.InMemory.ListDue(ctx, now)
	call := listCall{now: now}
	for _, v := range due {
		call.owners = append(call.owners, v.Owner)
	}
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
	return due, err
}

func (l *listingStore) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// firstListingAt returns the first call made with a clock reading at or after t.
func (l *listingStore) firstListingAt(t time.Time) (listCall, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calls {
		if !c.now.Before(t) {
			return c, true
		}
	}
	return listCall{}, false
}

func (s *TriggerSuite) runInBackground(trigger *Trigger) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- trigger.Run(ctx) }()
	return func() {
		cancel()
		s.Require().NoError(<-done)
	}
}

func (s *TriggerSuite) TestRunDetectsWithinOneTick() {
	const tick = 10 * time.Millisecond
	store := &listingStore{InMemory: s.vaults}
	trigger := New(store, s.log, s.client,
		WithClock(s.clock.Now),
		WithConfig(Config{TickInterval: tick}),
	)
	s.createVault("alice", 30, 300)

	stop := s.runInBackground(trigger)
	defer stop()

	s.Eventually(func() bool {
		return store.count() >= 3
	}, time.Second, tick, "sweeps every tick")
	s.Equal(models.StatusActive, s.vault("alice").Status)

	deadline := s.created.Add(30 * models.Day)
	s.clock.Set(deadline)
	started := time.Now()

	s.Eventually(func() bool {
		return s.vault("alice").Status == models.StatusTransferred
	}, time.Second, time.Millisecond)
	s.Less(time.Since(started), 2*tick+100*time.Millisecond)

	first, ok := store.firstListingAt(deadline)
	s.Require().True(ok)
	s.Equal([]string{"alice"}, first.owners, "the first sweep after the deadline picks the vault up")
	s.Equal(int32(1), s.client.calls.Load())
}

func (s *TriggerSuite) TestRunSlowLedgerDelaysNextTickByAtMostAttemptTimeout() {
	const (
		tick           = 10 * time.Millisecond
		attemptTimeout = 200 * time.Millisecond
	)
	s.createVault("slow", 30, 1)
	s.createVault("late", 31, 1)

	// never released: the slow attempt ends at the attempt timeout
	client := &blockingClient{Client: s.ledger, blockFrom: "bc1qslowprimary", release: make(chan struct{})}
	trigger := s.newTrigger(client, WithConfig(Config{
		TickInterval:   tick,
		Concurrency:    1,
		AttemptTimeout: attemptTimeout,
		RetryInitial:   24 * time.Hour,
		RetryMax:       24 * time.Hour,
	}))

	s.clock.Set(s.created.Add(30 * models.Day))
	stop := s.runInBackground(trigger)
	defer stop()

	s.Eventually(func() bool {
		return s.vault("slow").Status == models.StatusTransferPending
	}, time.Second, time.Millisecond)

	s.clock.Set(s.created.Add(31 * models.Day))
	started := time.Now()
	s.Eventually(func() bool {
		return s.vault("late").Status == models.StatusTransferred
	}, 2*time.Second, time.Millisecond)

	s.Less(time.Since(started), attemptTimeout+2*tick+100*time.Millisecond)
	slow := s.vault("slow")
	s.Equal(models.StatusTransferPending, slow.Status)
	s.Equal(1, slow.TransferAttempts)
	s.Contains(s.actions("slow"), models.ActionAutoTransferFailed)
}

type blockingClient struct {
	ledger.Client
	blockFrom string
	release   chan struct{}
}

func (c *blockingClient) Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.Receipt, error) {
	if req.From == c.blockFrom {
		select {
		case <-c.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.Client.Transfer(ctx, req)
}

func TestRetryDelay(t *testing.T) {
	initial, maxDelay := 30*time.Second, time.Hour
	assert.Equal(t, 30*time.Second, RetryDelay(1, initial, maxDelay))
	assert.Equal(t, 60*time.Second, RetryDelay(2, initial, maxDelay))
	assert.Equal(t, 240*time.Second, RetryDelay(4, initial, maxDelay))
	assert.Equal(t, time.Hour, RetryDelay(20, initial, maxDelay))
	assert.Equal(t, time.Hour, RetryDelay(10_000, initial, maxDelay))
}

func TestMemoryLeaser(t *testing.T) {
	l := NewMemoryLeaser()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "alice", time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)

	_, ok, _ = l.Acquire(ctx, "alice", time.Minute)
	assert.False(t, ok, "lease is exclusive")

	_, ok, _ = l.Acquire(ctx, "bob", time.Minute)
	assert.True(t, ok, "leases are per owner")

	release()
	_, ok, _ = l.Acquire(ctx, "alice", time.Minute)
	assert.True(t, ok)
}

func TestMemoryLeaserExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLeaser()
	l.now = func() time.Time { return now }

	staleRelease, ok, _ := l.Acquire(context.Background(), "alice", time.Minute)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = l.Acquire(context.Background(), "alice", time.Minute)
	assert.True(t, ok, "expired lease can be taken over")

	staleRelease()
	_, ok, _ = l.Acquire(context.Background(), "alice", time.Minute)
	assert.False(t, ok, "stale holder must not release the new lease")
}
