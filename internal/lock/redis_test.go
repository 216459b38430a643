package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T) (*RedisLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLock(rdb, "test:lock", time.Minute), mr
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	t.Parallel()

	l, mr := newTestLock(t)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "run-a"))
	assert.ErrorIs(t, l.Acquire(ctx, "run-b"), ErrHeld)

	// a stranger cannot release someone else's lock
	require.NoError(t, l.Release(ctx, "run-b"))
	got, err := mr.Get("test:lock")
	require.NoError(t, err)
	assert.Equal(t, "run-a", got)

	require.NoError(t, l.Release(ctx, "run-a"))
	assert.False(t, mr.Exists("test:lock"))
	require.NoError(t, l.Acquire(ctx, "run-b"))
}

func TestRedisLock_Expires(t *testing.T) {
	t.Parallel()

	l, mr := newTestLock(t)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "run-a"))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, l.Acquire(ctx, "run-b"))
}

func TestRedisLock_BackendDown(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	l := NewRedisLock(rdb, "", 0)

	err = l.Acquire(context.Background(), "run-a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrHeld)
}
