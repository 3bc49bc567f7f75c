package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	dErrors "satvault/pkg/domain-errors"
)

// Tx groups a vault mutation with the log entries and messages it produces so
// an operation either fully applies or has no effect. The in-memory variant is
// a per-owner lock; the Postgres variant (cmd/server) is a database
// transaction carried in ctx. RunInTx must not be nested for the same owner.
type Tx interface {
	RunInTx(ctx context.Context, owner string, fn func(ctx context.Context) error) error
}

const (
	numVaultShards        = 128
	defaultVaultTxTimeout = 5 * time.Second
)

// ShardedTx serializes operations per owner across a fixed set of mutexes.
// Owners hashing to the same shard contend, which is harmless since one
// operation never spans two owners.
type ShardedTx struct {
	shards  [numVaultShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx() *ShardedTx {
	return &ShardedTx{timeout: defaultVaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, owner string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := &t.shards[shardFor(owner)]
	shard.Lock()
	defer shard.Unlock()

	// check again after acquiring the lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

func shardFor(owner string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(owner))
	return h.Sum32() % numVaultShards
}
