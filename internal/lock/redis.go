package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/phonebook/internal/repository"
)

// KeyPrefix namespaces phonebook locks inside a shared Redis database.
const KeyPrefix = "phonebook:"

// RedisLocker implements Locker on top of a repository.DistributedLock, so
// sign-ups for one login name are serialized across every phonebook process
// sharing the same database.
type RedisLocker struct {
	distributedLock repository.DistributedLock
}

// NewRedisLocker creates a new RedisLocker wrapping a DistributedLock implementation.
func NewRedisLocker(dl repository.DistributedLock) *RedisLocker {
	return &RedisLocker{
		distributedLock: dl,
	}
}

// Acquire attempts to acquire a lock.
// Returns true if the lock was acquired, false if another process holds it.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.distributedLock.Acquire(ctx, KeyPrefix+key, ttl)
	return ok, wrapRedisErr("acquire", key, err)
}

// AcquireWithRetry attempts to acquire a lock with retries.
func (l *RedisLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	ok, err := l.distributedLock.AcquireWithRetry(ctx, KeyPrefix+key, ttl, maxRetries, retryDelay)
	return ok, wrapRedisErr("acquire", key, err)
}

// Release releases a lock held by this process.
func (l *RedisLocker) Release(ctx context.Context, key string) (bool, error) {
	ok, err := l.distributedLock.Release(ctx, KeyPrefix+key)
	return ok, wrapRedisErr("release", key, err)
}

// Extend extends the TTL of a held lock.
func (l *RedisLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.distributedLock.Extend(ctx, KeyPrefix+key, ttl)
	return ok, wrapRedisErr("extend", key, err)
}

// IsHeld checks if any process holds the lock.
func (l *RedisLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	ok, err := l.distributedLock.IsHeld(ctx, KeyPrefix+key)
	return ok, wrapRedisErr("check", key, err)
}

func wrapRedisErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("redis lock %s %q: %w", op, key, err)
}

var _ Locker = (*RedisLocker)(nil)
