package factory

import (
	"net/http"

	"github.com/mikey/email-onebox/internal/adapters/notify"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// NotifyFactory creates the notification sinks and their fanout
type NotifyFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewNotifyFactory creates a new notify factory
func NewNotifyFactory(cfg *config.Config, logger *zap.Logger) *NotifyFactory {
	return &NotifyFactory{cfg: cfg, logger: logger}
}

// CreateNotifiers returns every sink, enabled or not
func (f *NotifyFactory) CreateNotifiers() []core.Notifier {
	c := f.cfg.GetNotify()
	client := &http.Client{Timeout: c.Timeout}
	return []core.Notifier{
		notify.NewSlackNotifier(c.SlackURL, client),
		notify.NewWebhookNotifier(c.WebhookURL, client),
		notify.NewSMTPNotifier(c.SMTP, f.logger),
	}
}

// CreateDispatcher creates the fanout over all sinks
func (f *NotifyFactory) CreateDispatcher() core.Dispatcher {
	notifiers := f.CreateNotifiers()
	for _, n := range notifiers {
		if !n.Enabled() {
			f.logger.Info("Notification sink disabled", zap.String("sink", n.Name()))
		}
	}
	return notify.NewFanout(notifiers, f.cfg.GetNotify().Timeout, f.logger)
}

// TriggerLabels returns the labels whose messages are fanned out
func (f *NotifyFactory) TriggerLabels() (core.LabelSet, error) {
	return core.NewLabelSet(f.cfg.GetNotify().TriggerLabels)
}
