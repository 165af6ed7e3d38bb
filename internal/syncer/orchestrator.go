// Package syncer drives the mailbox fetcher over every configured account.
package syncer

import (
	"context"
	"time"

	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AccountResult is the outcome of one account's fetch
type AccountResult struct {
	Account string
	Fetched int
	Err     error
}

// Report summarizes one sync pass
type Report struct {
	Started  time.Time
	Finished time.Time
	Accounts []AccountResult
}

// Failed returns the number of accounts whose fetch failed
func (r Report) Failed() int {
	n := 0
	for _, a := range r.Accounts {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// Fetched returns the number of messages fetched across accounts
func (r Report) Fetched() int {
	n := 0
	for _, a := range r.Accounts {
		n += a.Fetched
	}
	return n
}

// Options tunes the orchestrator
type Options struct {
	// Concurrency is the number of accounts fetched in parallel
	Concurrency int
	// Buffer is the capacity of the channel between fetchers and the consumer
	Buffer int
}

// Orchestrator fetches every account and hands each message to one consumer
type Orchestrator struct {
	accounts []core.Account
	fetcher  core.MailboxFetcher
	index    core.IndexStore
	retrier  core.Retrier
	opts     Options
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator over a fixed account list
func NewOrchestrator(
	accounts []core.Account,
	fetcher core.MailboxFetcher,
	index core.IndexStore,
	retrier core.Retrier,
	opts Options,
	logger *zap.Logger,
) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Buffer < 0 {
		opts.Buffer = 0
	}
	return &Orchestrator{
		accounts: append([]core.Account(nil), accounts...),
		fetcher:  fetcher,
		index:    index,
		retrier:  retrier,
		opts:     opts,
		logger:   logger,
	}
}

// Accounts returns the configured account identifiers
func (o *Orchestrator) Accounts() []string {
	ids := make([]string, len(o.accounts))
	for i, a := range o.accounts {
		ids[i] = a.ID()
	}
	return ids
}

// SyncAll runs one pass over every account. Each message is indexed
// unlabeled and then passed to handler, which may be nil. A failing account
// is recorded in the report and never stops the others.
func (o *Orchestrator) SyncAll(ctx context.Context, handler core.MessageHandler) Report {
	report := Report{
		Started:  time.Now(),
		Accounts: make([]AccountResult, len(o.accounts)),
	}

	messages := make(chan core.Message, o.opts.Buffer)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for msg := range messages {
			o.consume(ctx, msg, handler)
		}
	}()

	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, account := range o.accounts {
		g.Go(func() error {
			report.Accounts[i] = o.syncAccount(ctx, account, messages)
			return nil
		})
	}
	g.Wait()
	close(messages)
	<-consumed

	report.Finished = time.Now()
	o.logger.Info("Sync pass finished",
		zap.Int("accounts", len(report.Accounts)),
		zap.Int("failed", report.Failed()),
		zap.Int("fetched", report.Fetched()),
		zap.Duration("duration", report.Finished.Sub(report.Started)))
	return report
}

func (o *Orchestrator) syncAccount(ctx context.Context, account core.Account, out chan<- core.Message) AccountResult {
	res := AccountResult{Account: account.ID()}
	res.Err = o.fetcher.Fetch(ctx, account, func(msg core.Message) error {
		select {
		case out <- msg:
			res.Fetched++
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if res.Err != nil {
		o.logger.Error("Account sync failed",
			zap.String("account", account.ID()),
			zap.String("op", "fetch"),
			zap.Int("fetched", res.Fetched),
			zap.Error(res.Err))
	}
	return res
}

func (o *Orchestrator) consume(ctx context.Context, msg core.Message, handler core.MessageHandler) {
	if err := core.UpsertWithRetry(ctx, o.index, o.retrier, msg); err != nil {
		o.logger.Error("Failed to index message",
			zap.String("account", msg.Account),
			zap.String("subject", msg.Subject),
			zap.String("op", "index"),
			zap.Error(err))
	}
	if handler != nil {
		handler(ctx, msg)
	}
}
