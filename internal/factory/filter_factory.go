package factory

import (
	"github.com/mikey/email-onebox/internal/adapters/filter"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates the one-shot message filter
type FilterFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.ClassificationService
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, service *core.ClassificationService) *FilterFactory {
	return &FilterFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateEmailFilter creates the CLI filter
func (f *FilterFactory) CreateEmailFilter() ports.EmailFilter {
	return filter.NewCliFilter(
		f.service,
		f.logger,
		f.cfg.GetBool("cli.verbose"),
		f.cfg.GetBool("cli.json"),
	)
}
