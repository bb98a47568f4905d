package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/duel-platform/internal/duel"
)

const (
	defaultCacheTTL = 5 * time.Minute
	catalogKey      = "tasks:catalog"
)

// Cache is a Redis read-through cache in front of a TaskCatalog. A Redis
// failure falls back to the source.
type Cache struct {
	client *redis.Client
	source duel.TaskCatalog
	ttl    time.Duration
	logger zerolog.Logger
}

var _ duel.TaskCatalog = (*Cache)(nil)

func NewCache(client *redis.Client, source duel.TaskCatalog, ttl time.Duration, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{
		client: client,
		source: source,
		ttl:    ttl,
		logger: logger.With().Str("component", "task_cache").Logger(),
	}
}

func (c *Cache) ListTasks(ctx context.Context) ([]duel.Task, error) {
	if tasks, ok := c.get(ctx); ok {
		return tasks, nil
	}

	tasks, err := c.source.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, tasks); err != nil {
		c.logger.Warn().Err(err).Msg("failed to cache task list")
	}
	return tasks, nil
}

// Invalidate drops the cached list.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, catalogKey).Err()
}

func (c *Cache) get(ctx context.Context) ([]duel.Task, bool) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("task cache read failed")
		}
		return nil, false
	}

	var tasks []duel.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		c.logger.Warn().Err(err).Msg("corrupt task cache entry")
		return nil, false
	}
	return tasks, true
}

func (c *Cache) set(ctx context.Context, tasks []duel.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKey, data, c.ttl).Err()
}
