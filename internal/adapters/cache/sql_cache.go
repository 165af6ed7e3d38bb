package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

type labelRow struct {
	Key       string `db:"message_key"`
	Label     string `db:"label"`
	LastSeen  int64  `db:"last_seen"`
	ExpiresAt int64  `db:"expires_at"`
}

// sqlCache holds the queries shared by the SQLite and MySQL caches. Times
// are unix seconds so both dialects compare them the same way.
type sqlCache struct {
	db          *sqlx.DB
	upsertSQL   string
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func newSQLCache(db *sqlx.DB, upsertSQL string, logger *zap.Logger, cleanupFreq time.Duration) *sqlCache {
	c := &sqlCache{
		db:          db,
		upsertSQL:   upsertSQL,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}
	if cleanupFreq > 0 {
		go c.startCleanupTask()
	}
	return c
}

// Get retrieves the cached label for a message key
func (c *sqlCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var row labelRow
	err := c.db.GetContext(ctx, &row, c.db.Rebind(`
		SELECT message_key, label, last_seen, expires_at
		FROM label_cache
		WHERE message_key = ?
	`), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	entry := &core.CacheEntry{
		Key:       row.Key,
		Label:     core.Label(row.Label),
		LastSeen:  time.Unix(row.LastSeen, 0),
		ExpiresAt: time.Unix(row.ExpiresAt, 0),
	}
	if time.Now().After(entry.ExpiresAt) {
		return nil, ErrExpired
	}
	return entry, nil
}

// Set stores a cache entry
func (c *sqlCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	_, err := c.db.ExecContext(ctx, c.upsertSQL,
		entry.Key, string(entry.Label), entry.LastSeen.Unix(), entry.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *sqlCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, c.db.Rebind(`DELETE FROM label_cache WHERE message_key = ?`), key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *sqlCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, c.db.Rebind(`DELETE FROM label_cache WHERE expires_at <= ?`), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

func (c *sqlCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *sqlCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close cache database", zap.Error(err))
		}
	})
}
