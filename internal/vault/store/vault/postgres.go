package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"satvault/internal/platform/postgres"
	"satvault/internal/vault/models"
	id "satvault/pkg/domain"
	"satvault/pkg/platform/sentinel"
	txcontext "satvault/pkg/platform/tx"
)

// PostgresStore persists vaults in PostgreSQL. Execute locks the row with
// SELECT ... FOR UPDATE, so concurrent sweeps and API calls on one owner
// serialize in the database even across processes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const vaultColumns = `owner, primary_address, backup_address, inactivity_days, balance, status,
	created_at, last_active, updated_at, transfer_id, pending_amount, transfer_attempts,
	next_attempt_at, transferred_at`

func (s *PostgresStore) Create(ctx context.Context, v *models.Vault) error {
	query := `
		INSERT INTO vaults (` + vaultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query, vaultArgs(v)...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert vault: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByOwner(ctx context.Context, owner string) (*models.Vault, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE owner = $1`, owner)
	v, err := scanVault(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find vault: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) Execute(ctx context.Context, owner string, validate ValidateFunc, mutate MutateFunc) (*models.Vault, error) {
	var out *models.Vault
	err := txcontext.RunInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE owner = $1 FOR UPDATE`, owner)
		v, err := scanVault(row)
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock vault: %w", err)
		}
		if err := validate(v); err != nil {
			return err
		}
		mutate(v)

		query := `
			UPDATE vaults SET
				primary_address = $2, backup_address = $3, inactivity_days = $4, balance = $5,
				status = $6, created_at = $7, last_active = $8, updated_at = $9, transfer_id = $10,
				pending_amount = $11, transfer_attempts = $12, next_attempt_at = $13, transferred_at = $14
			WHERE owner = $1
		`
		if _, err := tx.ExecContext(ctx, query, vaultArgs(v)...); err != nil {
			return fmt.Errorf("update vault: %w", err)
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time) ([]*models.Vault, error) {
	query := `
		SELECT ` + vaultColumns + `
		FROM vaults
		WHERE (status = 'active' AND last_active + make_interval(hours => inactivity_days * 24) <= $1)
		   OR (status = 'transfer_pending' AND next_attempt_at <= $1)
		ORDER BY COALESCE(next_attempt_at, last_active + make_interval(hours => inactivity_days * 24))
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list due vaults: %w", err)
	}
	defer rows.Close()

	var due []*models.Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due vault: %w", err)
		}
		due = append(due, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due vaults: %w", err)
	}
	return due, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVault(row rowScanner) (*models.Vault, error) {
	var (
		v             models.Vault
		status        string
		balance       int64
		pendingAmount int64
		transferID    uuid.NullUUID
		nextAttemptAt sql.NullTime
		transferredAt sql.NullTime
	)
	err := row.Scan(
		&v.Owner, &v.PrimaryAddress, &v.BackupAddress, &v.InactivityDays, &balance, &status,
		&v.CreatedAt, &v.LastActive, &v.UpdatedAt, &transferID, &pendingAmount, &v.TransferAttempts,
		&nextAttemptAt, &transferredAt,
	)
	if err != nil {
		return nil, err
	}
	if v.Status, err = models.ParseStatus(status); err != nil {
		return nil, err
	}
	v.Balance = uint64(balance)
	v.PendingAmount = uint64(pendingAmount)
	if transferID.Valid {
		v.TransferID = id.TransferID(transferID.UUID)
	}
	if nextAttemptAt.Valid {
		v.NextAttemptAt = nextAttemptAt.Time
	}
	if transferredAt.Valid {
		t := transferredAt.Time
		v.TransferredAt = &t
	}
	return &v, nil
}

func vaultArgs(v *models.Vault) []any {
	var transferID uuid.NullUUID
	if !v.TransferID.IsNil() {
		transferID = uuid.NullUUID{UUID: uuid.UUID(v.TransferID), Valid: true}
	}
	var nextAttemptAt sql.NullTime
	if !v.NextAttemptAt.IsZero() {
		nextAttemptAt = sql.NullTime{Time: v.NextAttemptAt, Valid: true}
	}
	var transferredAt sql.NullTime
	if v.TransferredAt != nil {
		transferredAt = sql.NullTime{Time: *v.TransferredAt, Valid: true}
	}
	return []any{
		v.Owner, v.PrimaryAddress, v.BackupAddress, v.InactivityDays, int64(v.Balance), string(v.Status),
		v.CreatedAt, v.LastActive, v.UpdatedAt, transferID, int64(v.PendingAmount), v.TransferAttempts,
		nextAttemptAt, transferredAt,
	}
}
