package ratelimiter

import (
	"context"
	"math"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, def BucketConfig) (*RedisLuaLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLuaLimiter(rdb, def), mr
}

func TestNewBucketConfigFromPerMinute(t *testing.T) {
	t.Parallel()
	cfg := NewBucketConfigFromPerMinute(60)
	assert.Equal(t, BucketConfig{Capacity: 60, RefillRate: 1}, cfg)
	assert.True(t, cfg.Enabled())

	assert.Equal(t, BucketConfig{}, NewBucketConfigFromPerMinute(0))
	assert.False(t, NewBucketConfigFromPerMinute(-5).Enabled())
}

func TestAllow_NilLimiterAllows(t *testing.T) {
	t.Parallel()
	var l *RedisLuaLimiter
	allowed, retry, err := l.Allow(context.Background(), "ai:client:1", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retry)

	assert.Nil(t, NewRedisLuaLimiter(nil, BucketConfig{Capacity: 1, RefillRate: 1}))
	l.SetBucketConfig("k", BucketConfig{})
}

func TestAllow_DisabledBucketAllows(t *testing.T) {
	t.Parallel()
	l, mr := newTestLimiter(t, BucketConfig{})
	for i := 0; i < 5; i++ {
		allowed, _, err := l.Allow(context.Background(), "ai:client:1", 1)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.Empty(t, mr.Keys())
}

func TestAllow_DefaultBucketPerKey(t *testing.T) {
	t.Parallel()
	l, mr := newTestLimiter(t, BucketConfig{Capacity: 3, RefillRate: 0.5})
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, retry, err := l.Allow(ctx, "ai:client:1", 1)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d", i)
		assert.Zero(t, retry)
	}
	allowed, retry, err := l.Allow(ctx, "ai:client:1", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 2*time.Second, retry)

	allowed, _, err = l.Allow(ctx, "ai:client:2", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "buckets are independent per key")

	now = now.Add(2 * time.Second)
	allowed, _, err = l.Allow(ctx, "ai:client:1", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "one token refilled")

	assert.True(t, mr.Exists("quota:ai:client:1"))
	assert.Greater(t, mr.TTL("quota:ai:client:1"), time.Duration(0))
}

func TestAllow_KeyOverride(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(t, BucketConfig{Capacity: 100, RefillRate: 1})
	l.SetBucketConfig("ai:client:9", BucketConfig{Capacity: 1, RefillRate: 0.001})
	ctx := context.Background()

	allowed, _, err := l.Allow(ctx, "ai:client:9", 0)
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, retry, err := l.Allow(ctx, "ai:client:9", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retry, time.Duration(0))
}

func TestAllow_RedisDownFailsOpenWithError(t *testing.T) {
	t.Parallel()
	l, mr := newTestLimiter(t, BucketConfig{Capacity: 1, RefillRate: 1})
	mr.Close()

	allowed, _, err := l.Allow(context.Background(), "ai:client:1", 1)
	require.Error(t, err)
	assert.True(t, allowed)
	assert.Contains(t, err.Error(), "op=ratelimiter.allow")
}

func TestToFloat64(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 1.5, toFloat64("1.5"), 1e-9)
	assert.InDelta(t, 2.0, toFloat64(int64(2)), 1e-9)
	assert.True(t, math.IsNaN(toFloat64("x")))
}
