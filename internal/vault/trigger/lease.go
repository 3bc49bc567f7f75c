package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Leaser grants a short exclusive claim on one vault so only one process
// drives its transfer attempt at a time. The pending gate in the store is the
// correctness boundary; the lease keeps competing processes from queueing on
// the same row lock and from issuing duplicate ledger calls.
type Leaser interface {
	// Acquire returns acquired=false when another holder owns the lease.
	// release is a no-op when the lease was not acquired.
	Acquire(ctx context.Context, owner string, ttl time.Duration) (release func(), acquired bool, err error)
}

// MemoryLeaser is a process-local Leaser.
type MemoryLeaser struct {
	mu     sync.Mutex
	now    func() time.Time
	seq    uint64
	leases map[string]memoryLease
}

type memoryLease struct {
	token   uint64
	expires time.Time
}

func NewMemoryLeaser() *MemoryLeaser {
	return &MemoryLeaser{now: time.Now, leases: make(map[string]memoryLease)}
}

func (l *MemoryLeaser) Acquire(_ context.Context, owner string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[owner]; ok && now.Before(held.expires) {
		return func() {}, false, nil
	}

	l.seq++
	token := l.seq

	l.leases[owner] = memoryLease{token: token, expires: now.Add(ttl)}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[owner]; ok && held.token == token {
			delete(l.leases, owner)
		}
	}, true, nil
}

const leaseKeyPrefix = "satvault:trigger:lease:"

// releaseScript deletes the lease only if it still carries our token, so an
// expired lease that another process re-acquired is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLeaser shares leases across processes with SET NX PX.
type RedisLeaser struct {
	client *redis.Client
}

func NewRedisLeaser(client *redis.Client) *RedisLeaser {
	return &RedisLeaser{client: client}
}

func (l *RedisLeaser) Acquire(ctx context.Context, owner string, ttl time.Duration) (func(), bool, error) {
	key := leaseKeyPrefix + owner
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("acquire lease: %w", err)
	}
	if !ok {
		return func() {}, false, nil
	}
	return func() {
		// release even when the attempt's context was cancelled
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}, true, nil
}
