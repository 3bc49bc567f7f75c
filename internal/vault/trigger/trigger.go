// Package trigger runs the automatic transfer engine. A sweep lists vaults that
// are due at one instant and drives each through its own task:
//
//	lease -> pending gate + "attempted" entry -> ledger call -> applyTransfer | recordFailure
//
// The ledger call runs outside every lock. A failed attempt leaves the vault
// transfer_pending with an exponential retry delay; there is no retry limit.
//
// Only the due listing uses the sweep's start instant. Each step of a task reads
// the clock again, so entries and timestamps it writes never predate work that
// happened while it waited for a slot or for the ledger.
//
// Run starts the next sweep only after the current one finishes, so a vault
// whose deadline passes is transferred at most
// TickInterval + AttemptTimeout * ceil(due/Concurrency) later, plus store time.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"satvault/internal/ledger"
	"satvault/internal/vault/models"
	id "satvault/pkg/domain"
	"satvault/pkg/platform/sentinel"
	"satvault/pkg/requestcontext"
)

type VaultStore interface {
	Execute(ctx context.Context, owner string, validate func(*models.Vault) error, mutate func(*models.Vault)) (*models.Vault, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Vault, error)
}

type ActivityLog interface {
	Append(ctx context.Context, owner string, action models.Action, details string) (*models.ActivityLogEntry, error)
	Publish(ctx context.Context, entries ...*models.ActivityLogEntry)
}

// TxRunner groups a vault mutation with its log entry. Implementations must
// not be nested for the same owner.
type TxRunner interface {
	RunInTx(ctx context.Context, owner string, fn func(ctx context.Context) error) error
}

type Config struct {
	TickInterval   time.Duration
	Concurrency    int
	RetryInitial   time.Duration
	RetryMax       time.Duration
	LeaseTTL       time.Duration
	AttemptTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		TickInterval:   time.Minute,
		Concurrency:    8,
		RetryInitial:   30 * time.Second,
		RetryMax:       time.Hour,
		LeaseTTL:       2 * time.Minute,
		AttemptTimeout: time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = d.RetryInitial
	}
	if c.RetryMax < c.RetryInitial {
		c.RetryMax = max(d.RetryMax, c.RetryInitial)
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = d.AttemptTimeout
	}
	// the lease must outlive the ledger call it protects
	if c.LeaseTTL <= c.AttemptTimeout {
		c.LeaseTTL = 2 * c.AttemptTimeout
	}
	return c
}

type Trigger struct {
	vaults  VaultStore
	log     ActivityLog
	client  ledger.Client
	tx      TxRunner
	leaser  Leaser
	cfg     Config
	metrics *Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Trigger)

func WithConfig(cfg Config) Option {
	return func(t *Trigger) {
		t.cfg = cfg
	}
}

func WithTx(tx TxRunner) Option {
	return func(t *Trigger) {
		if tx != nil {
			t.tx = tx
		}
	}
}

func WithLeaser(l Leaser) Option {
	return func(t *Trigger) {
		if l != nil {
			t.leaser = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(t *Trigger) {
		t.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(t *Trigger) {
		if tracer != nil {
			t.tracer = tracer
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(t *Trigger) {
		if now != nil {
			t.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Trigger) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func New(vaults VaultStore, log ActivityLog, client ledger.Client, opts ...Option) *Trigger {
	t := &Trigger{
		vaults: vaults,
		log:    log,
		client: client,
		tx:     directTx{},
		leaser: NewMemoryLeaser(),
		cfg:    DefaultConfig(),
		tracer: otel.Tracer("satvault/trigger"),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.cfg = t.cfg.withDefaults()
	return t
}

type directTx struct{}

func (directTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// SweepResult counts what one sweep did with the vaults it found due.
type SweepResult struct {
	Due         int
	Transferred int
	Failed      int
	Skipped     int
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeTransferred
	outcomeFailed
)

// errNotDue aborts the pending gate when the vault stopped being due between
// listing and locking (activity reset, another worker, terminal state).
var errNotDue = errors.New("vault not due")

// Run sweeps once immediately and then every TickInterval until ctx is done.
func (t *Trigger) Run(ctx context.Context) error {
	t.logger.InfoContext(ctx, "transfer trigger started",
		"tick_interval", t.cfg.TickInterval, "concurrency", t.cfg.Concurrency)

	ticker := time.NewTicker(t.cfg.TickInterval)
	defer ticker.Stop()

	for {
		if _, err := t.Sweep(ctx); err != nil && ctx.Err() == nil {
			t.logger.ErrorContext(ctx, "transfer sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "transfer trigger stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep lists the vaults due at the current instant and processes them as
// independent tasks. Per-vault failures are absorbed; only a failure to list
// due vaults is returned.
func (t *Trigger) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	due, err := t.vaults.ListDue(ctx, t.now())
	if err != nil {
		return SweepResult{}, fmt.Errorf("list due vaults: %w", err)
	}

	var transferred, failed, skipped atomic.Int64
	var g errgroup.Group
	g.SetLimit(t.cfg.Concurrency)
	for _, v := range due {
		owner := v.Owner
		g.Go(func() error {
			switch t.process(ctx, owner) {
			case outcomeTransferred:
				transferred.Add(1)
			case outcomeFailed:
				failed.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if t.metrics != nil {
		t.metrics.ObserveSweep(time.Since(start))
	}
	result := SweepResult{
		Due:         len(due),
		Transferred: int(transferred.Load()),
		Failed:      int(failed.Load()),
		Skipped:     int(skipped.Load()),
	}
	if result.Due > 0 {
		t.logger.InfoContext(ctx, "transfer sweep finished",
			"due", result.Due, "transferred", result.Transferred, "failed", result.Failed, "skipped", result.Skipped)
	}
	return result, nil
}

func (t *Trigger) process(ctx context.Context, owner string) outcome {
	release, acquired, err := t.leaser.Acquire(ctx, owner, t.cfg.LeaseTTL)
	if err != nil {
		t.logger.WarnContext(ctx, "transfer lease unavailable", "owner", owner, "error", err)
		return outcomeSkipped
	}
	if !acquired {
		if t.metrics != nil {
			t.metrics.IncrementLeaseSkips()
		}
		return outcomeSkipped
	}
	defer release()

	ctx, span := t.tracer.Start(ctx, "trigger.transfer_attempt",
		trace.WithAttributes(attribute.String("vault.owner", owner)))
	defer span.End()

	v, err := t.beginAttempt(ctx, owner)
	if err != nil {
		if !errors.Is(err, errNotDue) && !errors.Is(err, sentinel.ErrNotFound) {
			t.logger.ErrorContext(ctx, "failed to start transfer attempt", "owner", owner, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "begin attempt")
		}
		return outcomeSkipped
	}
	span.SetAttributes(
		attribute.String("transfer.id", v.TransferID.String()),
		attribute.Int64("transfer.amount", int64(v.PendingAmount)),
		attribute.Int("transfer.attempt", v.TransferAttempts+1),
	)
	if t.metrics != nil {
		t.metrics.IncrementAttempts()
	}

	callCtx, _ := t.stamp(ctx)
	callCtx, cancel := context.WithTimeout(callCtx, t.cfg.AttemptTimeout)
	receipt, transferErr := t.client.Transfer(callCtx, ledger.TransferRequest{
		ID:     v.TransferID.String(),
		From:   v.PrimaryAddress,
		To:     v.BackupAddress,
		Amount: v.PendingAmount,
	})
	cancel()

	if transferErr == nil && receipt.Amount != v.PendingAmount {
		transferErr = fmt.Errorf("ledger moved %d, expected %d", receipt.Amount, v.PendingAmount)
	}
	if transferErr != nil {
		span.RecordError(transferErr)
		span.SetStatus(codes.Error, "ledger transfer failed")
		if err := t.recordFailure(ctx, v, transferErr); err != nil {
			t.logger.ErrorContext(ctx, "failed to record transfer failure", "owner", owner, "error", err)
		}
		if t.metrics != nil {
			t.metrics.IncrementFailures()
		}
		return outcomeFailed
	}

	if err := t.complete(ctx, v, receipt); err != nil {
		// the ledger has executed; the next sweep replays the same transfer id
		// and receives the same receipt
		t.logger.ErrorContext(ctx, "failed to apply completed transfer", "owner", owner,
			"transfer_id", v.TransferID.String(), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply transfer")
		return outcomeFailed
	}
	if t.metrics != nil {
		t.metrics.IncrementSuccesses()
	}
	t.logger.InfoContext(ctx, "vault transferred to heir", "owner", owner,
		"transfer_id", v.TransferID.String(), "amount", v.PendingAmount, "tx_id", receipt.TxID)
	return outcomeTransferred
}

// beginAttempt is the pending gate. An eligible Active vault moves to
// transfer_pending with a fresh transfer id; a pending vault whose retry delay
// elapsed is resumed with its existing id. In both cases NextAttemptAt is pushed
// past the lease so a crashed attempt is retried only after the lease expires.
func (t *Trigger) beginAttempt(ctx context.Context, owner string) (*models.Vault, error) {
	ctx, now := t.stamp(ctx)
	var (
		v     *models.Vault
		entry *models.ActivityLogEntry
	)
	err := t.tx.RunInTx(ctx, owner, func(ctx context.Context) error {
		var err error
		v, err = t.vaults.Execute(ctx, owner, func(v *models.Vault) error {
			switch v.Status {
			case models.StatusActive:
				if !v.IsEligible(now) {
					return errNotDue
				}
				return v.CanMarkPending()
			case models.StatusTransferPending:
				if !v.IsDue(now) {
					return errNotDue
				}
				return nil
			default:
				return errNotDue
			}
		}, func(v *models.Vault) {
			if v.IsActive() {
				v.ApplyPending(id.NewTransferID(), now)
			}
			v.NextAttemptAt = now.Add(t.cfg.LeaseTTL)
			v.UpdatedAt = now
		})
		if err != nil {
			return err
		}
		entry, err = t.log.Append(ctx, owner, models.ActionAutoTransferAttempted, fmt.Sprintf(
			"attempt %d: transferring %d sats from %s to %s (transfer %s)",
			v.TransferAttempts+1, v.PendingAmount, v.PrimaryAddress, v.BackupAddress, v.TransferID,
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	t.log.Publish(ctx, entry)
	return v, nil
}

func (t *Trigger) complete(ctx context.Context, v *models.Vault, receipt *ledger.Receipt) error {
	ctx, now := t.stamp(ctx)
	var entry *models.ActivityLogEntry
	err := t.tx.RunInTx(ctx, v.Owner, func(ctx context.Context) error {
		_, err := t.vaults.Execute(ctx, v.Owner, func(current *models.Vault) error {
			if current.TransferID != v.TransferID {
				return fmt.Errorf("transfer id changed under attempt %s", v.TransferID)
			}
			return current.CanApplyTransfer(v.PendingAmount)
		}, func(current *models.Vault) {
			current.ApplyTransfer(v.PendingAmount, now)
		})
		if err != nil {
			return err
		}
		entry, err = t.log.Append(ctx, v.Owner, models.ActionAutoTransferSucceeded, fmt.Sprintf(
			"transferred %d sats to %s (transfer %s, ledger tx %s)",
			v.PendingAmount, v.BackupAddress, v.TransferID, receipt.TxID,
		))
		return err
	})
	if err != nil {
		return err
	}
	t.log.Publish(ctx, entry)
	return nil
}

func (t *Trigger) recordFailure(ctx context.Context, v *models.Vault, cause error) error {
	ctx, now := t.stamp(ctx)
	attempts := v.TransferAttempts + 1
	next := now.Add(RetryDelay(attempts, t.cfg.RetryInitial, t.cfg.RetryMax))

	var entry *models.ActivityLogEntry
	err := t.tx.RunInTx(ctx, v.Owner, func(ctx context.Context) error {
		var err error
		entry, err = t.log.Append(ctx, v.Owner, models.ActionAutoTransferFailed, fmt.Sprintf(
			"attempt %d failed: %v; next attempt at %s",
			attempts, cause, next.UTC().Format(time.RFC3339),
		))
		if err != nil {
			return err
		}
		_, err = t.vaults.Execute(ctx, v.Owner, func(current *models.Vault) error {
			return current.CanRecordAttemptFailure(v.TransferID)
		}, func(current *models.Vault) {
			current.ApplyAttemptFailure(next, now)
		})
		return err
	})
	if err != nil {
		return err
	}
	t.log.Publish(ctx, entry)
	t.logger.WarnContext(ctx, "transfer attempt failed", "owner", v.Owner,
		"transfer_id", v.TransferID.String(), "attempt", attempts, "next_attempt_at", next, "error", cause)
	return nil
}

// stamp reads the clock once for one step; the activity log takes its entry
// time from ctx.
func (t *Trigger) stamp(ctx context.Context) (context.Context, time.Time) {
	now := t.now()
	return requestcontext.WithTime(ctx, now), now
}

// RetryDelay is the wait after the given number of failed attempts: initial,
// doubling per failure, capped at maxDelay.
func RetryDelay(failures int, initial, maxDelay time.Duration) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxDelay
	b.MaxElapsedTime = 0
	b.Reset()

	delay := initial
	for i := 0; i < failures; i++ {
		delay = b.NextBackOff()
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}
