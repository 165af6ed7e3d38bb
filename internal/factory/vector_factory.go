package factory

import (
	"fmt"

	"github.com/mikey/email-onebox/internal/adapters/vector"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// VectorFactory creates the vector similarity store
type VectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewVectorFactory creates a new vector factory
func NewVectorFactory(cfg *config.Config, logger *zap.Logger) *VectorFactory {
	return &VectorFactory{cfg: cfg, logger: logger}
}

// CreateVectorStore creates a vector store based on the configuration
func (f *VectorFactory) CreateVectorStore() (core.VectorStore, error) {
	c := f.cfg.GetVector()
	dist, err := vector.DistanceByName(c.Distance)
	if err != nil {
		return nil, err
	}

	switch c.Type {
	case "memory":
		return vector.NewMemoryStore(dist), nil
	case "sqlite":
		if err := ensureDir(c.SQLitePath); err != nil {
			return nil, err
		}
		return vector.NewSQLiteStore(c.SQLitePath, dist, f.logger)
	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", c.Type)
	}
}
