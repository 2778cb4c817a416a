package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLocker()
	key := Keys.LoginName("ann")

	ok, err := m.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	held, err := m.IsHeld(ctx, key)
	require.NoError(t, err)
	require.True(t, held)

	released, err := m.Release(ctx, key)
	require.NoError(t, err)
	require.True(t, released)

	released, err = m.Release(ctx, key)
	require.NoError(t, err)
	require.False(t, released)
}

func TestMemoryLocker_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLocker()

	ok, err := m.Acquire(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	extended, err := m.Extend(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.False(t, extended)

	ok, err = m.Acquire(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, m.Sweep())
}

func TestMemoryLocker_AcquireWithRetry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLocker()

	ok, err := m.Acquire(ctx, "k", 30*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.AcquireWithRetry(ctx, "k", time.Minute, 0, time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = m.AcquireWithRetry(ctx, "k", time.Minute, 50, 5*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.AcquireWithRetry(cancelled, "k", time.Minute, 3, time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryLocker_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLocker()
	key := Keys.LoginName("shared")

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := NewLock(m, key)
			ok, err := l.AcquireWithRetry(ctx, time.Minute, 1000, time.Millisecond)
			if err != nil || !ok {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			_ = l.Release(ctx)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxInside)
}

func TestLock_Wrapper(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLocker()
	l := NewLock(m, Keys.LoginName("ann"))

	require.Equal(t, "lock:owner:login:ann", l.Key())
	require.False(t, l.IsHeld())
	require.NoError(t, l.Release(ctx))

	ok, err := l.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, l.IsHeld())
	require.NoError(t, l.Extend(ctx, time.Minute))

	require.NoError(t, l.Release(ctx))
	require.False(t, l.IsHeld())

	held, err := m.IsHeld(ctx, l.Key())
	require.NoError(t, err)
	require.False(t, held)
}

func TestNoOpLocker(t *testing.T) {
	ctx := context.Background()
	n := NewNoOpLocker()

	ok, err := n.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = n.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	held, err := n.IsHeld(ctx, "k")
	require.NoError(t, err)
	require.False(t, held)
	require.Equal(t, int64(2), n.Grants())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	ok, err = n.Acquire(cancelled, "k", time.Second)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, ok)
	require.Equal(t, int64(2), n.Grants())
}

type stubDistributedLock struct {
	acquired map[string]bool
}

func (s *stubDistributedLock) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.acquired[key] {
		return false, nil
	}
	s.acquired[key] = true
	return true, nil
}

func (s *stubDistributedLock) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, _ int, _ time.Duration) (bool, error) {
	return s.Acquire(ctx, key, ttl)
}

func (s *stubDistributedLock) Release(_ context.Context, key string) (bool, error) {
	was := s.acquired[key]
	delete(s.acquired, key)
	return was, nil
}

func (s *stubDistributedLock) Extend(_ context.Context, key string, _ time.Duration) (bool, error) {
	return s.acquired[key], nil
}

func (s *stubDistributedLock) IsHeld(_ context.Context, key string) (bool, error) {
	return s.acquired[key], nil
}

func TestRedisLocker_Delegates(t *testing.T) {
	ctx := context.Background()
	stub := &stubDistributedLock{acquired: map[string]bool{}}
	r := NewRedisLocker(stub)

	ok, err := r.AcquireWithRetry(ctx, "k", time.Second, 1, time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	held, err := r.IsHeld(ctx, "k")
	require.NoError(t, err)
	require.True(t, held)

	require.True(t, stub.acquired[KeyPrefix+"k"])

	released, err := r.Release(ctx, "k")
	require.NoError(t, err)
	require.True(t, released)
}

func TestRedisLocker_WrapsErrors(t *testing.T) {
	boom := errors.New("connection refused")
	r := NewRedisLocker(&failingDistributedLock{err: boom})

	_, err := r.Acquire(context.Background(), Keys.LoginName("ann"), time.Second)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "lock:owner:login:ann")
}

type failingDistributedLock struct {
	stubDistributedLock
	err error
}

func (f *failingDistributedLock) Acquire(context.Context, string, time.Duration) (bool, error) {
	return false, f.err
}
