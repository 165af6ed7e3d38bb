package factory

import (
	"errors"

	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/utils"
	"go.uber.org/zap"
)

// ResilienceFactory creates guards around external dependencies
type ResilienceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewResilienceFactory creates a new resilience factory
func NewResilienceFactory(cfg *config.Config, logger *zap.Logger) *ResilienceFactory {
	return &ResilienceFactory{cfg: cfg, logger: logger}
}

// CreateGuard creates a guard with its own breaker for the named dependency
func (f *ResilienceFactory) CreateGuard(name string) *utils.Guard {
	return utils.NewGuard(name, f.guardConfig(), f.logger)
}

// CreateClassifierGuard creates the classification guard. Labels outside the
// taxonomy are retried but do not open the breaker.
func (f *ResilienceFactory) CreateClassifierGuard() *utils.Guard {
	cfg := f.guardConfig()
	cfg.Ignore = func(err error) bool {
		return errors.Is(err, core.ErrInvalidLabel)
	}
	return utils.NewGuard("classify", cfg, f.logger)
}

func (f *ResilienceFactory) guardConfig() utils.GuardConfig {
	r := f.cfg.GetResilience()
	return utils.GuardConfig{
		MaxRetries:      r.MaxRetries,
		InitialInterval: r.InitialInterval,
		MaxInterval:     r.MaxInterval,
		BreakerFailures: r.BreakerFailures,
		BreakerTimeout:  r.BreakerTimeout,
	}
}
