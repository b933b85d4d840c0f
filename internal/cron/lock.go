package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 30 * time.Minute

// Lock coordinates exclusive cron runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// lockStore is the slice of pkg/redis the distributed lock needs.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock keeps cron workers on different hosts from running the same cycle.
// The key carries a per-acquire owner token and expires after ttl, so a
// crashed worker cannot hold it forever.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration

	mu    sync.Mutex
	owner string
}

// NewRedisLock builds a lock on key. A non-positive ttl falls back to 30m.
func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis store required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

// Acquire reports whether this worker now owns the lock.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if ok {
		l.mu.Lock()
		l.owner = owner
		l.mu.Unlock()
	}
	return ok, nil
}

// Release deletes the key only while it still holds this worker's token.
// An expired or foreign lock is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner == "" {
		return nil
	}
	value, err := l.store.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			l.owner = ""
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value == l.owner {
		if err := l.store.Del(ctx, l.key); err != nil {
			return fmt.Errorf("delete lock: %w", err)
		}
	}
	l.owner = ""
	return nil
}

// LocalLock keeps overlapping cycles of one process from running the same jobs
// twice. It does not coordinate across processes; workers without redis use it.
type LocalLock struct {
	mu sync.Mutex
}

// NewLocalLock constructs an in-process lock.
func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

// Acquire reports false while another cycle holds the lock.
func (l *LocalLock) Acquire(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return l.mu.TryLock(), nil
}

// Release frees the lock.
func (l *LocalLock) Release(context.Context) error {
	l.mu.Unlock()
	return nil
}
