package message

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

func (s *PostgresStore) Append(ctx context.Context, msg *models.EncryptedMessage) error {
	query := `
		INSERT INTO vault_messages (id, owner, recipient_address, ciphertext, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(msg.ID), msg.Owner, msg.RecipientAddress, msg.Ciphertext, msg.CreatedAt,
	)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's messages oldest first.
func (s *PostgresStore) ListByOwner(ctx context.Context, owner string) ([]*models.EncryptedMessage, error) {
	query := `
		SELECT id, owner, recipient_address, ciphertext, created_at
		FROM vault_messages
		WHERE owner = $1
		ORDER BY seq
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []*models.EncryptedMessage
	for rows.Next() {
		var (
			msg   models.EncryptedMessage
			msgID uuid.UUID
		)
		if err := rows.Scan(&msgID, &msg.Owner, &msg.RecipientAddress, &msg.Ciphertext, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ID = id.MessageID(msgID)
		out = append(out, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}
