package cache

import (
	"context"
	"net"
	"testing"
	"time"

	"tracksvc/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("acquire and release", func(t *testing.T) {
		mr, client := newMiniredis(t)
		l := NewRedisLocker(client, "seed", time.Minute, 100*time.Millisecond)

		release, err := l.Acquire(ctx)
		require.NoError(t, err)
		assert.True(t, mr.Exists("seed"))
		assert.Equal(t, time.Minute, mr.TTL("seed"))

		require.NoError(t, release(ctx))
		assert.False(t, mr.Exists("seed"))
	})

	t.Run("held lock times out", func(t *testing.T) {
		_, client := newMiniredis(t)
		first := NewRedisLocker(client, "seed", time.Minute, 100*time.Millisecond)
		second := NewRedisLocker(client, "seed", time.Minute, 100*time.Millisecond)

		release, err := first.Acquire(ctx)
		require.NoError(t, err)
		defer release(ctx)

		_, err = second.Acquire(ctx)
		assert.ErrorIs(t, err, ErrLockHeld)
	})

	t.Run("waiter gets the lock after release", func(t *testing.T) {
		_, client := newMiniredis(t)
		l := NewRedisLocker(client, "seed", time.Minute, 2*time.Second)

		release, err := l.Acquire(ctx)
		require.NoError(t, err)
		go func() {
			time.Sleep(100 * time.Millisecond)
			release(ctx)
		}()

		release2, err := l.Acquire(ctx)
		require.NoError(t, err)
		require.NoError(t, release2(ctx))
	})

	t.Run("stale release keeps the new holder", func(t *testing.T) {
		mr, client := newMiniredis(t)
		l := NewRedisLocker(client, "seed", time.Second, 100*time.Millisecond)

		staleRelease, err := l.Acquire(ctx)
		require.NoError(t, err)
		mr.FastForward(2 * time.Second)

		release, err := l.Acquire(ctx)
		require.NoError(t, err)
		require.NoError(t, staleRelease(ctx))
		assert.True(t, mr.Exists("seed"), "expired holder must not delete the current lock")
		require.NoError(t, release(ctx))
		assert.False(t, mr.Exists("seed"))
	})

	t.Run("redis down", func(t *testing.T) {
		mr, client := newMiniredis(t)
		mr.Close()
		_, err := NewRedisLocker(client, "seed", time.Minute, 100*time.Millisecond).Acquire(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrLockHeld)
	})
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker(50 * time.Millisecond)

	release, err := l.Acquire(ctx)
	require.NoError(t, err)

	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, ErrLockHeld)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewLocalLocker(time.Minute).Acquire(cancelled)
	// A free lock may still win the select against a cancelled context.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}

	require.NoError(t, release(ctx))
	release, err = l.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestConnectAndCheckRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	ctx := context.Background()
	client, err := ConnectRedis(ctx, &config.Config{RedisHost: host, RedisPort: port})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, CheckRedis(ctx, client))
	assert.False(t, mr.Exists(checkKey))

	mr.Close()
	_, err = ConnectRedis(ctx, &config.Config{RedisHost: host, RedisPort: port})
	assert.Error(t, err)
}
