package activity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"satvault/internal/platform/postgres"
	"satvault/internal/vault/models"
	id "satvault/pkg/domain"
	"satvault/pkg/platform/sentinel"
	txcontext "satvault/pkg/platform/tx"
)

// PostgresStore persists log entries in vault_activity_log. A BIGSERIAL seq
// breaks ties between entries written in the same instant.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts entry. Returns sentinel.ErrNotFound when the vault does not exist.
func (s *PostgresStore) Append(ctx context.Context, entry *models.ActivityLogEntry) error {
	query := `
		INSERT INTO vault_activity_log (id, owner, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID), entry.Owner, string(entry.Action), entry.Details, entry.Timestamp,
	)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's entries newest first.
func (s *PostgresStore) ListByOwner(ctx context.Context, owner string) ([]*models.ActivityLogEntry, error) {
	query := `
		SELECT id, owner, action, details, created_at
		FROM vault_activity_log
		WHERE owner = $1
		ORDER BY seq DESC
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list activity entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.ActivityLogEntry
	for rows.Next() {
		var (
			entry   models.ActivityLogEntry
			entryID uuid.UUID
			action  string
		)
		if err := rows.Scan(&entryID, &entry.Owner, &action, &entry.Details, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		entry.ID = id.EntryID(entryID)
		if entry.Action, err = models.ParseAction(action); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity entries: %w", err)
	}
	return entries, nil
}
