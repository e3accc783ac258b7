// Package lock provides a Redis-backed mutex used to serialize import runs.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed run can hold its lock.
const DefaultTTL = 5 * time.Minute

// RedisLocker obtains short-lived named locks from Redis.
type RedisLocker struct {
	rdb    *redis.Client
	client *redislock.Client
	ttl    time.Duration
}

// Connect opens a Redis client for addr and verifies it answers.
func Connect(ctx context.Context, addr string, ttl time.Duration) (*RedisLocker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       0,
		PoolSize: 10,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return New(rdb, ttl), nil
}

// New wraps an existing Redis client.
func New(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{rdb: rdb, client: redislock.New(rdb), ttl: ttl}
}

// Acquire obtains the lock named key without waiting. The returned release func
// gives the lock back; releasing an expired lock is not an error.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	lk, err := l.client.Obtain(ctx, "lock:"+key, l.ttl, nil)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		if err := lk.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}, nil
}

// IsLocked reports whether err means another holder owns the lock.
func (l *RedisLocker) IsLocked(err error) bool {
	return errors.Is(err, redislock.ErrNotObtained)
}

// Close closes the underlying Redis client.
func (l *RedisLocker) Close() error {
	return l.rdb.Close()
}
