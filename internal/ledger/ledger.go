// Package ledger is the client side of the external custody ledger that moves
// a vault's balance under threshold signing.
package ledger

//go:generate mockgen -source=ledger.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"
)

// TransferRequest moves Amount satoshis From -> To. ID is the idempotency key:
// the ledger executes at most one transfer per ID and replays its receipt for
// repeated requests.
type TransferRequest struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// Receipt confirms an executed transfer.
type Receipt struct {
	ID          string    `json:"id"`
	TxID        string    `json:"tx_id"`
	Amount      uint64    `json:"amount"`
	CompletedAt time.Time `json:"completed_at"`
}

// Client executes transfers. Any error means the outcome is unknown or failed;
// callers retry with the same request ID.
type Client interface {
	Transfer(ctx context.Context, req TransferRequest) (*Receipt, error)
}
