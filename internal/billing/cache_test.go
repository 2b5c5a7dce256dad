package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	vals   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMapCache() *mapCache {
	return &mapCache{vals: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	delete(m.vals, key)
	delete(m.ttls, key)
	return nil
}

func (m *mapCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.vals[key] = value
	m.ttls[key] = ttl
	return nil
}

type countingChecker struct {
	active bool
	err    error
	calls  int
}

func (c *countingChecker) HasActiveSubscription(context.Context, string) (bool, error) {
	c.calls++
	return c.active, c.err
}

func TestCachedSubscriptions_ReadThrough(t *testing.T) {
	next := &countingChecker{active: true}
	cache := newMapCache()
	c := &CachedSubscriptions{Next: next, Cache: cache, TTL: time.Minute}

	for i := 0; i < 3; i++ {
		ok, err := c.HasActiveSubscription(context.Background(), "cus_1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, time.Minute, cache.ttls[cacheKey("cus_1")])
}

func TestCachedSubscriptions_CachesNegativeAnswers(t *testing.T) {
	next := &countingChecker{active: false}
	c := &CachedSubscriptions{Next: next, Cache: newMapCache()}

	for i := 0; i < 2; i++ {
		ok, err := c.HasActiveSubscription(context.Background(), "cus_1")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, next.calls)
}

func TestCachedSubscriptions_ErrorsAreNotCached(t *testing.T) {
	next := &countingChecker{err: errors.New("stripe down")}
	cache := newMapCache()
	c := &CachedSubscriptions{Next: next, Cache: cache}

	_, err := c.HasActiveSubscription(context.Background(), "cus_1")
	require.Error(t, err)
	assert.Empty(t, cache.vals)

	next.err = nil
	next.active = true
	ok, err := c.HasActiveSubscription(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, next.calls)
}

func TestCachedSubscriptions_CacheFailureFallsThrough(t *testing.T) {
	next := &countingChecker{active: true}
	cache := newMapCache()
	cache.getErr = errors.New("redis: connection refused")
	cache.setErr = errors.New("redis: connection refused")
	c := &CachedSubscriptions{Next: next, Cache: cache}

	ok, err := c.HasActiveSubscription(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, next.calls)
}
