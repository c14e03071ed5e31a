// Package ratelimiter implements the per-client AI quota as a token bucket
// kept in Redis and updated atomically by a Lua script.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BucketConfig describes a token bucket. A zero Capacity or RefillRate
// disables limiting for the key.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64
}

// Enabled reports whether the bucket limits anything.
func (c BucketConfig) Enabled() bool { return c.Capacity > 0 && c.RefillRate > 0 }

// NewBucketConfigFromPerMinute returns a bucket holding perMinute tokens that
// refills fully once a minute.
func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

// RedisLuaLimiter implements domain.RateLimiter. Keys without an explicit
// bucket use the default bucket.
type RedisLuaLimiter struct {
	redis  redis.Scripter
	script *redis.Script
	now    func() time.Time

	mu       sync.RWMutex
	buckets  map[string]BucketConfig
	fallback BucketConfig
}

// NewRedisLuaLimiter returns nil when rdb is nil; a nil limiter allows everything.
func NewRedisLuaLimiter(rdb redis.Scripter, def BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	return &RedisLuaLimiter{
		redis:    rdb,
		script:   redis.NewScript(luaTokenBucketScript),
		now:      time.Now,
		buckets:  map[string]BucketConfig{},
		fallback: def,
	}
}

const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then
  tokens = tonumber(data[1])
end
if data[2] then
  last_refill = tonumber(data[2])
end

local delta = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_after = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  retry_after = (cost - tokens) / refill_rate
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("EXPIRE", key, math.ceil(capacity / refill_rate) + 1)

return { allowed, tostring(retry_after) }
`

// Allow takes cost tokens from the bucket of key. Redis errors are returned
// together with allowed=true so callers can fail open.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil || l.redis == nil {
		return true, 0, nil
	}
	cfg := l.bucket(key)
	if !cfg.Enabled() {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowSec := float64(l.now().UnixNano()) / 1e9
	res, err := l.script.Run(ctx, l.redis, []string{"quota:" + key}, cfg.Capacity, cfg.RefillRate, nowSec, cost).Result()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		return true, 0, fmt.Errorf("op=ratelimiter.allow: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		slog.Error("redis rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}
	allowed := toInt64(vals[0]) == 1
	retryAfter := time.Duration(toFloat64(vals[1]) * float64(time.Second))
	return allowed, retryAfter, nil
}

// SetBucketConfig overrides the bucket of one key. It is safe for concurrent use.
func (l *RedisLuaLimiter) SetBucketConfig(key string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = cfg
}

func (l *RedisLuaLimiter) bucket(key string) BucketConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if cfg, ok := l.buckets[key]; ok {
		return cfg
	}
	return l.fallback
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case string:
		var f float64
		if _, err := fmt.Sscan(t, &f); err == nil {
			return f
		}
	case int64:
		return float64(t)
	}
	return math.NaN()
}
