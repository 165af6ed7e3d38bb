package factory

import (
	"fmt"

	"github.com/mikey/email-onebox/internal/adapters/index"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// IndexFactory creates the message index
type IndexFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewIndexFactory creates a new index factory
func NewIndexFactory(cfg *config.Config, logger *zap.Logger) *IndexFactory {
	return &IndexFactory{cfg: cfg, logger: logger}
}

// CreateIndexStore creates an index store based on the configuration
func (f *IndexFactory) CreateIndexStore() (core.IndexStore, error) {
	c := f.cfg.GetIndex()

	switch c.Type {
	case "memory":
		return index.NewMemoryStore(), nil
	case "sqlite":
		if err := ensureDir(c.SQLitePath); err != nil {
			return nil, err
		}
		return index.NewSQLiteStore(c.SQLitePath, f.logger)
	case "mysql":
		return index.NewMySQLStore(c.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported index type: %s", c.Type)
	}
}

// PageSize returns the number of documents a search returns
func (f *IndexFactory) PageSize() int {
	return f.cfg.GetIndex().PageSize
}
