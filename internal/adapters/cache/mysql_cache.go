package cache

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of the CacheRepository interface
type MySQLCache struct {
	*sqlCache
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS label_cache (
			message_key CHAR(64) PRIMARY KEY,
			label VARCHAR(64) NOT NULL,
			last_seen BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_label_cache_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	upsert := `
		INSERT INTO label_cache (message_key, label, last_seen, expires_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			label = VALUES(label),
			last_seen = VALUES(last_seen),
			expires_at = VALUES(expires_at)
	`
	return &MySQLCache{sqlCache: newSQLCache(db, upsert, logger, cleanupFreq)}, nil
}
