// Package distlock guards work that must not run twice at once across
// server instances, such as processing the same bulk upload.
package distlock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotOwner is returned when extending a lock that expired or was taken
// over by another holder.
var ErrNotOwner = errors.New("lock not owned")

// DistLock is one named lock. Implementations must be safe for use from a
// single goroutine; concurrent use across goroutines requires separate
// lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Locker hands out locks by key.
type Locker interface {
	NewLock(key string) DistLock
}

// NewLocker returns a Redis-backed Locker, or a Locker whose locks always
// succeed when redisClient is nil (single-instance deployments).
func NewLocker(redisClient *redis.Client, ttl time.Duration) Locker {
	if redisClient == nil {
		return NoopLocker{}
	}
	return &RedisLocker{client: redisClient, ttl: ttl}
}

// RedisLocker creates RedisLocks sharing one client and TTL.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLock creates a lock for key.
func (l *RedisLocker) NewLock(key string) DistLock {
	return NewRedisLock(l.client, key, l.ttl)
}

// NoopLocker provides locks that never contend.
type NoopLocker struct{}

// NewLock returns a lock that is always acquired.
func (NoopLocker) NewLock(string) DistLock { return noopLock{} }

type noopLock struct{}

func (noopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (noopLock) Release(context.Context) error         { return nil }
