package confirmation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/redis"
)

const defaultLockTTL = 2 * time.Minute

// Locker hands out single-writer locks per order so concurrent
// confirmations of the same payment cannot both reach delivery.
type Locker interface {
	Acquire(ctx context.Context, orderID string) (Lock, bool, error)
}

// Lock is one held per-order lock.
type Lock interface {
	Release(ctx context.Context) error
}

// RedisLocker implements Locker using Redis SETNX + TTL.
type RedisLocker struct {
	client redis.LockStore
	ttl    time.Duration
}

// NewRedisLocker constructs the per-order lock factory.
func NewRedisLocker(client redis.LockStore, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl}, nil
}

// Acquire tries to own the order's lock for the configured TTL.
func (f *RedisLocker) Acquire(ctx context.Context, orderID string) (Lock, bool, error) {
	key := f.client.FulfillLockKey(orderID)
	owner := uuid.NewString()
	ok, err := f.client.SetNX(ctx, key, owner, f.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLock{client: f.client, key: key, owner: owner}, true, nil
}

type redisLock struct {
	client redis.LockStore
	key    string
	owner  string
}

// Release frees the lock only if the owner value still matches.
func (l *redisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}
