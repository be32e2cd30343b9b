package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "dedup:msg:"

// RedisCache is a Redis implementation of core.DedupStore. Expiry is handled by
// Redis key TTLs, so it can be shared by several router processes.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache creates a new Redis dedup store
func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

// Claim records id with SET NX. It returns true when the key did not exist.
func (c *RedisCache) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, redisKeyPrefix+id, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim message %s: %w", id, err)
	}
	return ok, nil
}

// Exists reports whether id is recorded
func (c *RedisCache) Exists(ctx context.Context, id string) (bool, error) {
	n, err := c.client.Exists(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up message %s: %w", id, err)
	}
	return n > 0, nil
}

// Cleanup is a no-op; Redis expires keys itself
func (c *RedisCache) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the Redis client
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
