package notify

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// Fanout delivers one message to every enabled sink concurrently.
// Delivery is at most once: failures are logged and never retried.
type Fanout struct {
	notifiers []core.Notifier
	timeout   time.Duration
	logger    *zap.Logger
}

// NewFanout creates a dispatcher over notifiers. timeout bounds each sink.
func NewFanout(notifiers []core.Notifier, timeout time.Duration, logger *zap.Logger) *Fanout {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fanout{notifiers: notifiers, timeout: timeout, logger: logger}
}

// Dispatch never fails. The result lists sink names in registration order.
func (f *Fanout) Dispatch(ctx context.Context, msg core.Message) core.DispatchResult {
	errs := make([]error, len(f.notifiers))
	enabled := make([]bool, len(f.notifiers))

	var wg sync.WaitGroup
	for i, n := range f.notifiers {
		if !n.Enabled() {
			continue
		}
		enabled[i] = true
		wg.Add(1)
		go func(i int, n core.Notifier) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()
			errs[i] = n.Notify(sctx, msg)
		}(i, n)
	}
	wg.Wait()

	var res core.DispatchResult
	for i, n := range f.notifiers {
		switch {
		case !enabled[i]:
			res.Skipped = append(res.Skipped, n.Name())
		case errs[i] != nil:
			f.logger.Error("Notification failed",
				zap.String("op", "notify"),
				zap.String("sink", n.Name()),
				zap.String("account", msg.Account),
				zap.String("subject", msg.Subject),
				zap.Error(errs[i]))
			res.Failed = append(res.Failed, n.Name())
		default:
			f.logger.Debug("Notification sent", zap.String("sink", n.Name()))
			res.Delivered = append(res.Delivered, n.Name())
		}
	}
	return res
}
