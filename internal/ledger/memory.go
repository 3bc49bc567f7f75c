package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	dErrors "satvault/pkg/domain-errors"
	"satvault/pkg/requestcontext"
)

// Memory simulates the custody ledger in-process. Transfers are idempotent by
// request ID. With strict balances a transfer fails unless From was funded
// through Fund; otherwise the custody account is assumed to hold the amount.
type Memory struct {
	mu       sync.Mutex
	strict   bool
	balances map[string]uint64
	receipts map[string]*Receipt
	executed int
}

type MemoryOption func(*Memory)

func WithStrictBalances() MemoryOption {
	return func(m *Memory) {
		m.strict = true
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		balances: make(map[string]uint64),
		receipts: make(map[string]*Receipt),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Fund(address string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[address] += amount
}

func (m *Memory) Balance(address string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[address]
}

// Executed counts distinct transfers actually applied.
func (m *Memory) Executed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executed
}

func (m *Memory) Transfer(ctx context.Context, req TransferRequest) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.ID == "" || req.From == "" || req.To == "" {
		return nil, dErrors.New(dErrors.CodeTransferFailed, "transfer request is incomplete")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prior, ok := m.receipts[req.ID]; ok {
		if prior.Amount != req.Amount {
			return nil, dErrors.New(dErrors.CodeTransferFailed, "idempotency key reused with a different amount")
		}
		replay := *prior
		return &replay, nil
	}

	if m.strict {
		if m.balances[req.From] < req.Amount {
			return nil, dErrors.New(dErrors.CodeTransferFailed,
				fmt.Sprintf("insufficient funds: have %d, need %d", m.balances[req.From], req.Amount))
		}
		m.balances[req.From] -= req.Amount
	}
	m.balances[req.To] += req.Amount
	m.executed++

	receipt := &Receipt{
		ID:          req.ID,
		TxID:        uuid.NewString(),
		Amount:      req.Amount,
		CompletedAt: requestcontext.Now(ctx),
	}
	m.receipts[req.ID] = receipt
	out := *receipt
	return &out, nil
}
