package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goRedis "github.com/redis/go-redis/v9"

	"github.com/prn-tf/phonebook/internal/repository"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goRedis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only while the key still holds our token.
var extendScript = goRedis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// DistributedLock implements repository.DistributedLock with SET NX and a
// per-acquisition token, so a process only ever releases locks it holds.
type DistributedLock struct {
	client goRedis.UniversalClient

	mu     sync.Mutex
	tokens map[string]string
}

// NewDistributedLock creates a lock on top of an existing client.
func NewDistributedLock(client goRedis.UniversalClient) *DistributedLock {
	return &DistributedLock{
		client: client,
		tokens: make(map[string]string),
	}
}

// Acquire attempts to acquire a lock.
func (l *DistributedLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()
	return true, nil
}

// AcquireWithRetry attempts to acquire a lock with retries.
func (l *DistributedLock) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := l.Acquire(ctx, key, ttl)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}

		if i < maxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return false, nil
}

// Release releases a lock acquired by this instance.
func (l *DistributedLock) Release(ctx context.Context, key string) (bool, error) {
	token, ok := l.token(key)
	if !ok {
		return false, nil
	}

	n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to release lock %s: %w", key, err)
	}

	l.mu.Lock()
	delete(l.tokens, key)
	l.mu.Unlock()
	return n == 1, nil
}

// Extend extends the TTL of a lock acquired by this instance.
func (l *DistributedLock) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token, ok := l.token(key)
	if !ok {
		return false, nil
	}

	n, err := extendScript.Run(ctx, l.client, []string{key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to extend lock %s: %w", key, err)
	}
	return n == 1, nil
}

// IsHeld checks if the lock is currently held by anyone.
func (l *DistributedLock) IsHeld(ctx context.Context, key string) (bool, error) {
	err := l.client.Get(ctx, key).Err()
	if errors.Is(err, goRedis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check lock %s: %w", key, err)
	}
	return true, nil
}

func (l *DistributedLock) token(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[key]
	return t, ok
}

// Ensure DistributedLock implements repository.DistributedLock.
var _ repository.DistributedLock = (*DistributedLock)(nil)
