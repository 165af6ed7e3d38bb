package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/email-onebox/internal/adapters/cache"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates label cache repositories based on configuration
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

// CreateCacheRepository creates a cache repository based on the configuration
func (f *CacheFactory) CreateCacheRepository() (core.CacheRepository, error) {
	c := f.cfg.GetCache()

	switch c.Type {
	case "memory":
		return cache.NewMemoryCache(f.logger, c.CleanupFrequency), nil
	case "sqlite":
		if err := ensureDir(c.SQLitePath); err != nil {
			return nil, err
		}
		return cache.NewSQLiteCache(c.SQLitePath, f.logger, c.CleanupFrequency)
	case "mysql":
		return cache.NewMySQLCache(c.MySQLDSN, f.logger, c.CleanupFrequency)
	case "redis":
		return cache.NewRedisCache(c.RedisAddr, c.RedisPassword, c.RedisDB, f.logger)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", c.Type)
	}
}

// GetCacheTTL returns the configured cache TTL
func (f *CacheFactory) GetCacheTTL() time.Duration {
	return f.cfg.GetCache().TTL
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetCache().Enabled
}

// ensureDir creates the parent directory of a database file
func ensureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create SQLite directory: %w", err)
	}
	return nil
}
