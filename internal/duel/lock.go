package duel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker is a SETNX lock shared by every API instance.
type RedisLocker struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisLocker creates a Redis-backed locker. Locks expire after ttl (default 30s).
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "duel_locker").Logger(),
	}
}

// Lock acquires key or fails with ErrLockHeld.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func() error, error) {
	token := uuid.New().String()

	acquired, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		l.logger.Debug().Str("key", key).Msg("lock held elsewhere")
		return nil, ErrLockHeld
	}

	unlock := func() error {
		// the caller's ctx may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return releaseScript.Run(releaseCtx, l.redis, []string{key}, token).Err()
	}
	return unlock, nil
}

// LocalLocker serialises keys within one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Lock acquires key or fails with ErrLockHeld. It never blocks.
func (l *LocalLocker) Lock(_ context.Context, key string) (func() error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, ErrLockHeld
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
