package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// MemoryCache is an in-memory implementation of core.DedupStore with TTL eviction
type MemoryCache struct {
	entries    *gocache.Cache
	logger     *zap.Logger
	maxEntries int
}

// NewMemoryCache creates a new in-memory dedup store. maxEntries is a soft cap:
// when reached, expired entries are purged eagerly.
func NewMemoryCache(logger *zap.Logger, defaultTTL, cleanupFreq time.Duration, maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    gocache.New(defaultTTL, cleanupFreq),
		logger:     logger,
		maxEntries: maxEntries,
	}
}

// Claim records id unless it is already present
func (c *MemoryCache) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if c.maxEntries > 0 && c.entries.ItemCount() >= c.maxEntries {
		c.entries.DeleteExpired()
		if n := c.entries.ItemCount(); n >= c.maxEntries {
			c.logger.Warn("Dedup cache above soft capacity", zap.Int("entries", n), zap.Int("max_entries", c.maxEntries))
		}
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	if err := c.entries.Add(id, time.Now(), ttl); err != nil {
		return false, nil
	}
	return true, nil
}

// Exists reports whether id is present and not expired
func (c *MemoryCache) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := c.entries.Get(id)
	return ok, nil
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	before := c.entries.ItemCount()
	c.entries.DeleteExpired()
	c.logger.Debug("Cleaned up expired dedup entries", zap.Int("expired_count", before-c.entries.ItemCount()))
	return nil
}

// Len returns the number of entries, including expired ones not yet purged
func (c *MemoryCache) Len() int {
	return c.entries.ItemCount()
}
