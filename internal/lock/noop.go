package lock

import (
	"context"
	"sync/atomic"
	"time"
)

// NoOpLocker grants every request. It backs lock.backend "none", where the
// store's unique login-name constraint is the only guard against duplicate
// sign-ups.
type NoOpLocker struct {
	grants atomic.Int64
}

// NewNoOpLocker creates a new no-op locker.
func NewNoOpLocker() *NoOpLocker {
	return &NoOpLocker{}
}

// Acquire grants the lock unless ctx is done.
func (n *NoOpLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n.grants.Add(1)
	return true, nil
}

// AcquireWithRetry grants the lock unless ctx is done.
func (n *NoOpLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	return n.Acquire(ctx, key, ttl)
}

func (n *NoOpLocker) Release(ctx context.Context, key string) (bool, error) {
	return true, ctx.Err()
}

func (n *NoOpLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, ctx.Err()
}

// IsHeld is always false.
func (n *NoOpLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	return false, ctx.Err()
}

// Grants returns how many acquisitions were granted.
func (n *NoOpLocker) Grants() int64 {
	return n.grants.Load()
}

var _ Locker = (*NoOpLocker)(nil)
