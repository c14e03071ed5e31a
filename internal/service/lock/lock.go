// Package lock serializes analysis and manual scoring runs per candidate.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements domain.Locker with SET NX PX.
type RedisLocker struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedisLocker returns a locker whose locks expire after ttl when never released.
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

// TryLock acquires key or fails with domain.ErrConflict when it is held.
func (l *RedisLocker) TryLock(ctx domain.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("op=lock.token: %w", err)
	}
	ok, err := l.rdb.SetNX(ctx, "lock:"+key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("op=lock.acquire: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("op=lock.acquire: %s: %w", key, domain.ErrConflict)
	}
	return func() {
		// The caller's context may already be done when the run finishes.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{"lock:" + key}, token).Err(); err != nil {
			slog.Warn("failed to release lock", slog.String("key", key), slog.Any("error", err))
		}
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// LocalLocker is the in-process domain.Locker used when Redis is not configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker returns an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]struct{}{}}
}

// TryLock acquires key or fails with domain.ErrConflict when it is held.
func (l *LocalLocker) TryLock(_ domain.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, fmt.Errorf("op=lock.acquire: %s: %w", key, domain.ErrConflict)
	}
	l.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
