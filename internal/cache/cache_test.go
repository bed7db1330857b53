package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnloop/internal/domain"
)

func newMemoryCache(t *testing.T) Cache {
	t.Helper()
	m := NewMemory()
	t.Cleanup(func() { m.Close() })
	return m
}

func newRedisCache(t *testing.T) (Cache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := NewRedis(context.Background(), "redis://"+srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, srv
}

func TestMemorySetGet(t *testing.T) {
	c := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	_, err = c.Get(ctx, "absent")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestMemoryExpiry(t *testing.T) {
	c := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 30*time.Millisecond))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	time.Sleep(50 * time.Millisecond)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestMemoryIncr(t *testing.T) {
	c := newMemoryCache(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := c.Incr(ctx, "counter", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
}

func TestMemoryIncrWindowRollover(t *testing.T) {
	c := newMemoryCache(t)
	ctx := context.Background()

	n, err := c.Incr(ctx, "counter", 30*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	time.Sleep(50 * time.Millisecond)

	n, err = c.Incr(ctx, "counter", 30*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryDelete(t *testing.T) {
	c := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Delete(ctx, "k"))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestMemoryClosedRejectsOperations(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())

	_, err := m.Get(context.Background(), "k")
	assert.ErrorIs(t, err, domain.ErrCacheClosed)
	assert.ErrorIs(t, m.Set(context.Background(), "k", "v", 0), domain.ErrCacheClosed)

	// Double close is a no-op.
	assert.NoError(t, m.Close())
}

func TestRedisSetGet(t *testing.T) {
	c, _ := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	_, err = c.Get(ctx, "absent")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestRedisIncrSetsWindowExpiry(t *testing.T) {
	c, srv := newRedisCache(t)
	ctx := context.Background()

	n, err := c.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// The window expiry is set once, on counter creation.
	assert.Equal(t, time.Minute, srv.TTL("counter"))

	srv.FastForward(2 * time.Minute)
	n, err = c.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisDelete(t *testing.T) {
	c, _ := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Delete(ctx, "k"))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestNewRedisBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestRateLimiterEnforcesQuota(t *testing.T) {
	c := newMemoryCache(t)
	rl := NewRateLimiter(c, "email-sends", 3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Allow(ctx, "tenant-a"))
	}
	err := rl.Allow(ctx, "tenant-a")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	// Independent keys have independent quotas.
	assert.NoError(t, rl.Allow(ctx, "tenant-b"))
}

func TestRateLimiterDisabled(t *testing.T) {
	c := newMemoryCache(t)
	rl := NewRateLimiter(c, "email-sends", 0, time.Hour)

	for i := 0; i < 100; i++ {
		require.NoError(t, rl.Allow(context.Background(), "tenant-a"))
	}
}

func TestRateLimiterKeyIsolationAcrossWindows(t *testing.T) {
	c := newMemoryCache(t)
	rl := NewRateLimiter(c, "search", 1, 40*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, rl.Allow(ctx, "q"))
	require.ErrorIs(t, rl.Allow(ctx, "q"), domain.ErrRateLimited)

	// Wait past the window boundary; quota is fresh.
	time.Sleep(90 * time.Millisecond)
	assert.NoError(t, rl.Allow(ctx, "q"))
}

func TestRateLimiterSurfacesBackendFailure(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())

	rl := NewRateLimiter(m, "email-sends", 5, time.Hour)
	err := rl.Allow(context.Background(), "tenant-a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
}

func BenchmarkMemoryIncr(b *testing.B) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("counter-%d", i%16)
		if _, err := m.Incr(ctx, key, time.Minute); err != nil {
			b.Fatal(err)
		}
	}
}
