package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/llm-lead-router/internal/adapters/cache"
	"github.com/mikey/llm-lead-router/internal/config"
	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/mikey/llm-lead-router/internal/dedup"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stopper is implemented by stores that own background tasks or connections
type Stopper interface {
	Stop()
}

// CacheFactory creates dedup stores based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateDedupStore creates a dedup store based on the configuration
func (f *CacheFactory) CreateDedupStore() (core.DedupStore, error) {
	dedupCfg := f.cfg.GetDedup()
	logger := f.logger.Named("dedup")

	switch dedupCfg.Type {
	case "memory":
		return cache.NewMemoryCache(logger, dedupCfg.TTL, dedupCfg.CleanupFrequency, dedupCfg.MaxEntries), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(dedupCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return cache.NewSQLiteCache(dedupCfg.SQLitePath, logger, dedupCfg.CleanupFrequency)
	case "mysql":
		return cache.NewMySQLCache(dedupCfg.MySQLDSN, logger, dedupCfg.CleanupFrequency)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     dedupCfg.RedisAddr,
			Password: dedupCfg.RedisPassword,
			DB:       dedupCfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", dedupCfg.RedisAddr, err)
		}
		return cache.NewRedisCache(client, logger), nil
	default:
		return nil, fmt.Errorf("unsupported dedup store type: %s", dedupCfg.Type)
	}
}

// CreateGuard creates the dedup guard over store
func (f *CacheFactory) CreateGuard(store core.DedupStore) *dedup.Guard {
	return dedup.NewGuard(store, f.cfg.GetDedup().TTL, f.logger.Named("dedup"))
}
