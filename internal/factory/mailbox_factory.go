package factory

import (
	"github.com/mikey/email-onebox/internal/adapters/mailbox"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// MailboxFactory creates the IMAP fetcher
type MailboxFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailboxFactory creates a new mailbox factory
func NewMailboxFactory(cfg *config.Config, logger *zap.Logger) *MailboxFactory {
	return &MailboxFactory{cfg: cfg, logger: logger}
}

// CreateFetcher creates a fetcher dialing with implicit TLS
func (f *MailboxFactory) CreateFetcher() core.MailboxFetcher {
	c := f.cfg.GetIMAP()
	return mailbox.NewFetcher(
		mailbox.TLSDialer{Timeout: c.Timeout},
		mailbox.Options{Window: c.Window, Timeout: c.Timeout, FetchBody: c.FetchBody},
		f.logger,
	)
}

// Accounts returns the configured accounts
func (f *MailboxFactory) Accounts() ([]core.Account, error) {
	return f.cfg.GetAccounts()
}
