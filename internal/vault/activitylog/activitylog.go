// Package activitylog is the vault audit trail: existence-checked appends,
// newest-first reads, and best-effort fan-out of committed entries to an
// EventSink.
package activitylog

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
	Append(ctx context.Context, entry *models.ActivityLogEntry) error
	ListByOwner(ctx context.Context, owner string) ([]*models.ActivityLogEntry, error)
}

type VaultLookup interface {
	FindByOwner(ctx context.Context, owner string) (*models.Vault, error)
}

// EventSink receives entries after the write that produced them committed.
// Implementations must not block.
type EventSink interface {
	Publish(ctx context.Context, entry *models.ActivityLogEntry)
}

type Logger struct {
	store  Store
	vaults VaultLookup
	sink   EventSink
	logger *slog.Logger
}

type Option func(*Logger)

func WithEventSink(sink EventSink) Option {
	return func(l *Logger) {
		l.sink = sink
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.logger = logger
	}
}

func New(store Store, vaults VaultLookup, opts ...Option) *Logger {
	l := &Logger{store: store, vaults: vaults, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append writes one entry stamped with requestcontext.Now. It fails with
// not_found when the owner has no vault.
func (l *Logger) Append(ctx context.Context, owner string, action models.Action, details string) (*models.ActivityLogEntry, error) {
	if _, err := l.vaults.FindByOwner(ctx, owner); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vault not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vault")
	}

	entry, err := models.NewActivityLogEntry(owner, action, details, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := l.store.Append(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vault not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append activity entry")
	}
	return entry, nil
}

// List returns the owner's entries newest first. An owner without a vault has
// an empty log.
func (l *Logger) List(ctx context.Context, owner string) ([]*models.ActivityLogEntry, error) {
	entries, err := l.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list activity entries")
	}
	if entries == nil {
		entries = []*models.ActivityLogEntry{}
	}
	return entries, nil
}

// Publish hands committed entries to the sink, if one is configured.
func (l *Logger) Publish(ctx context.Context, entries ...*models.ActivityLogEntry) {
	if l.sink == nil {
		return
	}
	for _, entry := range entries {
		if entry != nil {
			l.sink.Publish(ctx, entry)
		}
	}
}
