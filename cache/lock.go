package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockHeld is returned when a lock could not be taken within the wait time.
var ErrLockHeld = errors.New("lock is held by another holder")

// ReleaseFunc gives a lock back.
type ReleaseFunc func(ctx context.Context) error

// Deletes the key only if it still carries our token, so an expired holder
// cannot release a lock that has since been taken by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-instance Redis mutex (SET NX PX with a random token).
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedisLocker creates a lock on key. The key expires after ttl so a crashed
// holder cannot block forever; Acquire gives up after wait.
func NewRedisLocker(client *redis.Client, key string, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		key:    key,
		ttl:    ttl,
		wait:   wait,
		retry:  50 * time.Millisecond,
	}
}

// Acquire blocks until the lock is taken, wait elapses or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context) (ReleaseFunc, error) {
	token := uuid.NewString()
	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
					return fmt.Errorf("failed to release lock %s: %w", l.key, err)
				}
				return nil
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrLockHeld
		case <-time.After(l.retry):
		}
	}
}

// LocalLocker is the in-process equivalent of RedisLocker.
type LocalLocker struct {
	sem  chan struct{}
	wait time.Duration
}

// NewLocalLocker creates an in-process lock; Acquire gives up after wait.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{sem: make(chan struct{}, 1), wait: wait}
}

// Acquire blocks until the lock is taken, wait elapses or ctx is done.
func (l *LocalLocker) Acquire(ctx context.Context) (ReleaseFunc, error) {
	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()

	select {
	case l.sem <- struct{}{}:
		return func(context.Context) error {
			<-l.sem
			return nil
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-deadline.C:
		return nil, ErrLockHeld
	}
}
