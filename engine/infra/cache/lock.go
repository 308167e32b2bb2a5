package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// releaseScript deletes the lock key only while the caller still holds it.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

var (
	// ErrLockTaken is returned once acquisition retries are exhausted.
	ErrLockTaken = errors.New("lock already held")
	// ErrLockLost means the lock expired or changed hands before release.
	ErrLockLost = errors.New("lock no longer held")
)

const (
	defaultLockTTL        = 30 * time.Second
	defaultAcquireBackoff = 25 * time.Millisecond
	defaultAcquireRetries = 40
	maxAcquireStep        = time.Second
)

// Lock is a held distributed lock.
type Lock interface {
	Release(ctx context.Context) error
}

// LockManager hands out per-key distributed locks.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RedisLockManager implements LockManager with SETNX plus a random holder
// token, so releases cannot delete a lock re-acquired by someone else.
type RedisLockManager struct {
	redis       RedisInterface
	acquireBase time.Duration
	maxRetries  uint64
}

// LockOption customizes a RedisLockManager.
type LockOption func(*RedisLockManager)

// WithAcquireBackoff overrides the acquisition retry schedule.
func WithAcquireBackoff(base time.Duration, maxRetries uint64) LockOption {
	return func(m *RedisLockManager) {
		if base > 0 {
			m.acquireBase = base
		}
		m.maxRetries = maxRetries
	}
}

// NewLockManager creates a lock manager backed by the given Redis client.
func NewLockManager(r RedisInterface, opts ...LockOption) *RedisLockManager {
	m := &RedisLockManager{
		redis:       r,
		acquireBase: defaultAcquireBackoff,
		maxRetries:  defaultAcquireRetries,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire takes the lock for key, retrying with exponential backoff while
// another holder has it. The lock auto-expires after ttl so a crashed holder
// cannot wedge the key forever.
func (m *RedisLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	token := uuid.NewString()
	backoff := retry.WithMaxRetries(
		m.maxRetries,
		retry.WithCappedDuration(maxAcquireStep, retry.NewExponential(m.acquireBase)),
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := m.redis.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(ErrLockTaken)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %q: %w", key, err)
	}
	return &redisLock{redis: m.redis, key: key, token: token}, nil
}

type redisLock struct {
	redis RedisInterface
	key   string
	token string
}

func (l *redisLock) Release(ctx context.Context) error {
	deleted, err := l.redis.Eval(ctx, releaseScript, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("releasing lock %q: %w", l.key, err)
	}
	if deleted == 0 {
		return ErrLockLost
	}
	return nil
}
