// Package messages gates sealed heir messages by vault status.
//
// Read policy:
//   - active, transfer_pending: only the owner
//   - transferred: only the heir, identified by a principal equal to the
//     vault's backup address; the owner loses access
//
// Writes require the owner's vault to be active.
package messages

import (
	"context"
	"errors"
	"log/slog"

	"satvault/internal/vault/models"
	dErrors "satvault/pkg/domain-errors"
	"satvault/pkg/platform/sentinel"
	"satvault/pkg/requestcontext"
)

type Store interface {
	Append(ctx context.Context, msg *models.EncryptedMessage) error
	ListByOwner(ctx context.Context, owner string) ([]*models.EncryptedMessage, error)
}

// VaultStore is the subset of the vault store the policy needs. Execute is
// used as a row lock so a message cannot slip in after the vault left Active.
type VaultStore interface {
	FindByOwner(ctx context.Context, owner string) (*models.Vault, error)
	Execute(ctx context.Context, owner string, validate func(*models.Vault) error, mutate func(*models.Vault)) (*models.Vault, error)
}

type ActivityAppender interface {
	Append(ctx context.Context, owner string, action models.Action, details string) (*models.ActivityLogEntry, error)
}

type Service struct {
	store  Store
	vaults VaultStore
	log    ActivityAppender
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, vaults VaultStore, log ActivityAppender, opts ...Option) *Service {
	s := &Service{store: store, vaults: vaults, log: log, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var errNotWritable = dErrors.New(dErrors.CodeForbidden, "caller has no active vault")

// Add stores a message for caller's vault and logs message_added. It returns
// the log entry so the caller can publish it after commit.
func (s *Service) Add(ctx context.Context, caller, recipient string, ciphertext []byte) (*models.EncryptedMessage, *models.ActivityLogEntry, error) {
	if caller == "" {
		return nil, nil, errNotWritable
	}
	_, err := s.vaults.Execute(ctx, caller,
		func(v *models.Vault) error {
			if !v.IsActive() {
				return errNotWritable
			}
			return nil
		},
		func(*models.Vault) {},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, errNotWritable
		}
		if _, ok := dErrors.As(err); ok {
			return nil, nil, err
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock vault")
	}

	msg, err := models.NewEncryptedMessage(caller, recipient, ciphertext, requestcontext.Now(ctx))
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.Append(ctx, msg); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store message")
	}
	entry, err := s.log.Append(ctx, caller, models.ActionMessageAdded, "recipient="+recipient)
	if err != nil {
		return nil, nil, err
	}
	return msg, entry, nil
}

// List returns owner's messages oldest first if caller may read them.
func (s *Service) List(ctx context.Context, caller, owner string) ([]*models.EncryptedMessage, error) {
	v, err := s.vaults.FindByOwner(ctx, owner)
	if errors.Is(err, sentinel.ErrNotFound) {
		// an owner with no vault has nothing to read; others learn nothing
		if caller != "" && caller == owner {
			return []*models.EncryptedMessage{}, nil
		}
		return nil, dErrors.New(dErrors.CodeForbidden, "caller may not read these messages")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vault")
	}

	if !CanRead(v, caller) {
		s.logger.WarnContext(ctx, "message access denied",
			"owner", owner,
			"status", v.Status,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.New(dErrors.CodeForbidden, "caller may not read these messages")
	}

	msgs, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list messages")
	}
	if msgs == nil {
		msgs = []*models.EncryptedMessage{}
	}
	return msgs, nil
}

// CanRead applies the status-based read policy.
func CanRead(v *models.Vault, caller string) bool {
	if caller == "" {
		return false
	}
	switch v.Status {
	case models.StatusActive, models.StatusTransferPending:
		return caller == v.Owner
	case models.StatusTransferred:
		return caller == v.BackupAddress
	default:
		return false
	}
}
