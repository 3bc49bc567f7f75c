package main

import (
	"context"
	"database/sql"

	dErrors "satvault/pkg/domain-errors"
	txcontext "satvault/pkg/platform/tx"
)

// vaultPostgresTx runs a vault operation in one database transaction carried
// through ctx; the stores pick it up via txcontext.From. Per-owner exclusion
// comes from the SELECT ... FOR UPDATE inside the vault store's Execute.
type vaultPostgresTx struct {
	db *sql.DB
}

func newVaultPostgresTx(db *sql.DB) *vaultPostgresTx {
	return &vaultPostgresTx{db: db}
}

func (t *vaultPostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return txcontext.RunInTx(ctx, t.db, func(ctx context.Context, _ *sql.Tx) error {
		return fn(ctx)
	})
}
