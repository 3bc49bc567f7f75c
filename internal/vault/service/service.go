// Package service is the VaultService façade. Every operation takes the caller
// principal explicitly, runs its vault mutation and log entries in one Tx, and
// publishes the resulting activity entries only after the Tx committed.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"satvault/internal/platform/metrics"
	"satvault/internal/sealing"
	"satvault/internal/vault/models"
	dErrors "satvault/pkg/domain-errors"
	"satvault/pkg/platform/middleware/device"
	"satvault/pkg/platform/sentinel"
	"satvault/pkg/requestcontext"
)

type VaultStore interface {
	Create(ctx context.Context, v *models.Vault) error
	FindByOwner(ctx context.Context, owner string) (*models.Vault, error)
	Execute(ctx context.Context, owner string, validate func(*models.Vault) error, mutate func(*models.Vault)) (*models.Vault, error)
}

type ActivityLog interface {
	Append(ctx context.Context, owner string, action models.Action, details string) (*models.ActivityLogEntry, error)
	List(ctx context.Context, owner string) ([]*models.ActivityLogEntry, error)
	Publish(ctx context.Context, entries ...*models.ActivityLogEntry)
}

type Messages interface {
	Add(ctx context.Context, caller, recipient string, ciphertext []byte) (*models.EncryptedMessage, *models.ActivityLogEntry, error)
	List(ctx context.Context, caller, owner string) ([]*models.EncryptedMessage, error)
}

type ProfileStore interface {
	Save(ctx context.Context, p *models.UserProfile) error
	Find(ctx context.Context, principal string) (*models.UserProfile, error)
}

type Service struct {
	vaults   VaultStore
	log      ActivityLog
	messages Messages
	profiles ProfileStore
	sealer   *sealing.Sealer
	tx       Tx
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithTx(tx Tx) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSealer(sealer *sealing.Sealer) Option {
	return func(s *Service) {
		if sealer != nil {
			s.sealer = sealer
		}
	}
}

func New(vaults VaultStore, log ActivityLog, msgs Messages, profiles ProfileStore, opts ...Option) *Service {
	s := &Service{
		vaults:   vaults,
		log:      log,
		messages: msgs,
		profiles: profiles,
		sealer:   sealing.New(),
		tx:       NewShardedTx(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VaultView is a vault with its countdown derived at read time.
type VaultView struct {
	Vault     *models.Vault    `json:"vault"`
	Countdown models.Countdown `json:"countdown"`
}

func requireCaller(caller string) error {
	if caller == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	return nil
}

// CreateVault registers caller's vault. A second create for the same caller
// fails with duplicate_vault and leaves the existing vault untouched.
func (s *Service) CreateVault(ctx context.Context, caller, primary, backup string, periodDays int) (*models.Vault, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	v, err := models.NewVault(caller, primary, backup, periodDays, now)
	if err != nil {
		return nil, err
	}

	var entry *models.ActivityLogEntry
	err = s.tx.RunInTx(ctx, caller, func(ctx context.Context) error {
		if err := s.vaults.Create(ctx, v); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeDuplicateVault, "caller already has a vault")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create vault")
		}
		entry, err = s.log.Append(ctx, caller, models.ActionCreated, fmt.Sprintf(
			"vault created: backup %s, inactivity period %d days%s",
			backup, periodDays, clientSuffix(ctx),
		))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Publish(ctx, entry)
	if s.metrics != nil {
		s.metrics.IncrementVaultsCreated()
	}
	s.logger.InfoContext(ctx, "vault created",
		"owner", caller,
		"inactivity_days", periodDays,
		"request_id", requestcontext.RequestID(ctx),
	)
	return v, nil
}

// GetVault returns nil without error when caller has no vault.
func (s *Service) GetVault(ctx context.Context, caller string) (*VaultView, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	v, err := s.vaults.FindByOwner(ctx, caller)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vault")
	}
	return &VaultView{Vault: v, Countdown: v.Countdown(requestcontext.Now(ctx))}, nil
}

// UpdateActivity resets the inactivity timer. It is rejected with
// vault_closed once a transfer is pending.
func (s *Service) UpdateActivity(ctx context.Context, caller string) (*models.Vault, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	v, entry, err := s.mutate(ctx, caller,
		func(v *models.Vault) error { return v.CanRecordActivity() },
		func(v *models.Vault) { v.ApplyActivity(now) },
		func(*models.Vault) (models.Action, string) {
			return models.ActionActivityUpdated, "activity recorded" + clientSuffix(ctx)
		},
	)
	if err != nil {
		return nil, err
	}

	s.log.Publish(ctx, entry)
	if s.metrics != nil {
		s.metrics.IncrementActivitySignals()
	}
	return v, nil
}

// Deposit credits amount satoshis. A deposit counts as owner activity.
func (s *Service) Deposit(ctx context.Context, caller string, amount uint64) (*models.Vault, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	v, entry, err := s.mutate(ctx, caller,
		func(v *models.Vault) error { return v.CanDeposit(amount) },
		func(v *models.Vault) { v.ApplyDeposit(amount, now) },
		func(v *models.Vault) (models.Action, string) {
			return models.ActionDeposited, fmt.Sprintf("deposited %d sats, balance %d", amount, v.Balance)
		},
	)
	if err != nil {
		return nil, err
	}

	s.log.Publish(ctx, entry)
	if s.metrics != nil {
		s.metrics.AddDeposited(amount)
	}
	s.logger.InfoContext(ctx, "deposit credited", "owner", caller, "amount", amount)
	return v, nil
}

// mutate runs one Execute and its log entry in a Tx and translates store errors.
func (s *Service) mutate(
	ctx context.Context,
	owner string,
	validate func(*models.Vault) error,
	apply func(*models.Vault),
	describe func(*models.Vault) (models.Action, string),
) (*models.Vault, *models.ActivityLogEntry, error) {
	var (
		v     *models.Vault
		entry *models.ActivityLogEntry
	)
	err := s.tx.RunInTx(ctx, owner, func(ctx context.Context) error {
		var err error
		v, err = s.vaults.Execute(ctx, owner, validate, apply)
		if err != nil {
			return translateStoreErr(err)
		}
		action, details := describe(v)
		entry, err = s.log.Append(ctx, owner, action, details)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return v, entry, nil
}

func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "vault not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "illegal vault state transition")
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "vault store failure")
}

// GetActivityLogs returns caller's entries newest first; empty when caller has no vault.
func (s *Service) GetActivityLogs(ctx context.Context, caller string) ([]*models.ActivityLogEntry, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.log.List(ctx, caller)
}

// AddEncryptedMessage stores an already sealed message for the heir.
func (s *Service) AddEncryptedMessage(ctx context.Context, caller, recipient string, ciphertext []byte) (*models.EncryptedMessage, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var (
		msg   *models.EncryptedMessage
		entry *models.ActivityLogEntry
	)
	err := s.tx.RunInTx(ctx, caller, func(ctx context.Context) error {
		var err error
		msg, entry, err = s.messages.Add(ctx, caller, recipient, ciphertext)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Publish(ctx, entry)
	if s.metrics != nil {
		s.metrics.IncrementMessagesAdded()
	}
	return msg, nil
}

// GetEncryptedMessages reads owner's messages on behalf of caller. The owner
// reads their own vault by passing owner == caller; the heir passes the
// original owner.
func (s *Service) GetEncryptedMessages(ctx context.Context, caller, owner string) ([]*models.EncryptedMessage, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	msgs, err := s.messages.List(ctx, caller, owner)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeForbidden) && s.metrics != nil {
			s.metrics.IncrementMessageAccessDenied()
		}
		return nil, err
	}
	return msgs, nil
}

// SealMessage encrypts plaintext for an heir public key (base64) and stores
// the result as caller's message. The plaintext is never persisted.
func (s *Service) SealMessage(ctx context.Context, caller, recipient, recipientPublicKey string, plaintext []byte) (*models.EncryptedMessage, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	key, err := sealing.ParsePublicKey(recipientPublicKey)
	if err != nil {
		return nil, err
	}
	ciphertext, err := s.sealer.Encrypt(plaintext, key)
	if err != nil {
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seal message")
	}
	return s.AddEncryptedMessage(ctx, caller, recipient, ciphertext)
}

// GetProfile returns nil without error when caller never saved a profile.
func (s *Service) GetProfile(ctx context.Context, caller string) (*models.UserProfile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	p, err := s.profiles.Find(ctx, caller)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return p, nil
}

func (s *Service) SaveProfile(ctx context.Context, caller, name string) (*models.UserProfile, error) {
	p, err := models.NewUserProfile(caller, name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save profile")
	}
	return p, nil
}

func clientSuffix(ctx context.Context) string {
	if d := device.Description(ctx); d != "" {
		return " (" + d + ")"
	}
	return ""
}
