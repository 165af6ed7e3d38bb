package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// Poller repeats sync passes on an interval and on demand
type Poller struct {
	orchestrator *Orchestrator
	handler      core.MessageHandler
	interval     time.Duration
	trigger      chan struct{}
	logger       *zap.Logger

	mu   sync.RWMutex
	last *Report
}

// NewPoller creates a poller that passes every message to handler
func NewPoller(o *Orchestrator, handler core.MessageHandler, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Poller{
		orchestrator: o,
		handler:      handler,
		interval:     interval,
		trigger:      make(chan struct{}, 1),
		logger:       logger,
	}
}

// Run syncs immediately, then on every tick or trigger, until ctx is done.
// Triggers that arrive while a pass is running collapse into one more pass.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Sync poller started",
		zap.Duration("interval", p.interval),
		zap.Strings("accounts", p.orchestrator.Accounts()))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.runOnce(ctx)
		select {
		case <-ctx.Done():
			p.logger.Info("Sync poller stopped")
			return
		case <-ticker.C:
		case <-p.trigger:
		}
	}
}

// Trigger requests a pass as soon as possible. It never blocks.
func (p *Poller) Trigger() bool {
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// LastReport returns the most recent completed pass, if any
func (p *Poller) LastReport() (Report, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return Report{}, false
	}
	return *p.last, true
}

func (p *Poller) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report := p.orchestrator.SyncAll(ctx, p.handler)
	p.mu.Lock()
	p.last = &report
	p.mu.Unlock()
}
