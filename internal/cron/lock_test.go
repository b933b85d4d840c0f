package cron

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	value, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestRedisLockIsExclusiveAcrossWorkers(t *testing.T) {
	ctx := context.Background()
	store := newMemoryLockStore()
	first, err := NewRedisLock(store, "library:lock:cron", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "library:lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, store.ttls["library:lock:cron"])

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "library:lock:cron", "non-owner must not release")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "library:lock:cron")

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockLeavesForeignTokenAlone(t *testing.T) {
	ctx := context.Background()
	store := newMemoryLockStore()
	lock, err := NewRedisLock(store, "cron", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.ttl)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// the key expired and another worker took it over
	store.values["cron"] = "someone-else"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "someone-else", store.values["cron"])

	delete(store.values, "cron")
	require.NoError(t, lock.Release(ctx))
}

func TestRedisLockReleaseSurfacesStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := newMemoryLockStore()
	lock, err := NewRedisLock(store, "cron", time.Minute)
	require.NoError(t, err)
	_, err = lock.Acquire(ctx)
	require.NoError(t, err)

	store.getErr = errors.New("connection reset")
	require.ErrorContains(t, lock.Release(ctx), "connection reset")
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "cron", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock(newMemoryLockStore(), "", time.Minute)
	assert.Error(t, err)
}

func TestServiceRunsWithRedisLock(t *testing.T) {
	store := newMemoryLockStore()
	lock, err := NewRedisLock(store, "cron", time.Minute)
	require.NoError(t, err)
	job := &testJob{name: "job"}

	store.values["cron"] = "other-worker"
	svc, err := NewService(ServiceParams{Logger: newTestLogger(new(bytes.Buffer)), Registry: mustRegistry(t, job), Lock: lock})
	require.NoError(t, err)
	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs, "cycle must skip while another worker holds the lock")

	delete(store.values, "cron")
	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Equal(t, 1, job.runs)
	assert.NotContains(t, store.values, "cron", "lock released after the cycle")
}
