package cache

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the CacheRepository interface
type SQLiteCache struct {
	*sqlCache
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// One connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS label_cache (
			message_key TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			last_seen INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_label_cache_expires_at ON label_cache(expires_at)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	upsert := `
		INSERT INTO label_cache (message_key, label, last_seen, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(message_key) DO UPDATE SET
			label = excluded.label,
			last_seen = excluded.last_seen,
			expires_at = excluded.expires_at
	`
	return &SQLiteCache{sqlCache: newSQLCache(db, upsert, logger, cleanupFreq)}, nil
}
