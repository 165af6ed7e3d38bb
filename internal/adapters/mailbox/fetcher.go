// Package mailbox fetches the most recent messages of IMAP accounts.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// DefaultWindow is how many of the newest messages a fetch reads
const DefaultWindow = 6

// ErrSessionBusy is returned when the account already has a session open
var ErrSessionBusy = errors.New("session already in progress")

// Options configures a Fetcher
type Options struct {
	Window    int
	Timeout   time.Duration
	FetchBody bool
}

// Fetcher implements core.MailboxFetcher over IMAP
type Fetcher struct {
	dialer Dialer
	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]bool
}

// NewFetcher creates a fetcher
func NewFetcher(dialer Dialer, opts Options, logger *zap.Logger) *Fetcher {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	return &Fetcher{
		dialer: dialer,
		opts:   opts,
		logger: logger,
		active: make(map[string]bool),
	}
}

// Window returns the sequence range of the newest window messages of a
// folder holding count messages. ok is false for an empty folder.
func Window(count uint32, window int) (from, to uint32, ok bool) {
	if count == 0 {
		return 0, 0, false
	}
	from = 1
	if w := uint32(window); count > w {
		from = count - w + 1
	}
	return from, count, true
}

// Fetch opens one session for account, reads the newest messages of its
// folder and emits the complete ones in ascending order. The folder is
// released before logout on every path. Messages are emitted once the
// session is closed, so a slow consumer never holds the connection open.
func (f *Fetcher) Fetch(ctx context.Context, account core.Account, emit func(core.Message) error) error {
	if !f.acquire(account.ID()) {
		return fmt.Errorf("%w: %s: %w", core.ErrConnection, account.ID(), ErrSessionBusy)
	}
	defer f.release(account.ID())

	msgs, fetchErr := f.read(ctx, account)
	for _, msg := range msgs {
		if err := emit(msg); err != nil {
			return err
		}
	}
	return fetchErr
}

// read collects the complete messages of the fetch window. On a mid-window
// failure the messages read so far are returned with the error.
func (f *Fetcher) read(ctx context.Context, account core.Account) ([]core.Message, error) {
	log := f.logger.With(zap.String("account", account.ID()), zap.String("folder", account.Folder))

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	session, err := f.dialer.Dial(ctx, account)
	if err != nil {
		log.Error("Failed to connect", zap.String("op", "connect"), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", core.ErrConnection, err)
	}
	defer func() {
		if logoutErr := session.Logout(context.Background()); logoutErr != nil {
			log.Debug("Logout failed", zap.Error(logoutErr))
		}
	}()

	count, err := session.Select(ctx, account.Folder)
	if err != nil {
		log.Error("Failed to open folder", zap.String("op", "select"), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", core.ErrConnection, err)
	}
	defer func() {
		if unselectErr := session.Unselect(context.Background()); unselectErr != nil {
			log.Debug("Unselect failed", zap.Error(unselectErr))
		}
	}()

	from, to, ok := Window(count, f.opts.Window)
	if !ok {
		log.Debug("Folder is empty")
		return nil, nil
	}

	var msgs []core.Message
	skipped := 0
	err = session.Fetch(ctx, from, to, f.opts.FetchBody, func(env Envelope) error {
		msg := core.Message{
			Subject: env.Subject,
			From:    env.From,
			Date:    env.Date,
			Folder:  account.Folder,
			Account: account.ID(),
			Body:    env.Body,
		}
		if !msg.Complete() {
			skipped++
			return nil
		}
		msgs = append(msgs, msg)
		return nil
	})
	if err != nil {
		log.Error("Fetch aborted",
			zap.String("op", "fetch"),
			zap.Int("read", len(msgs)),
			zap.Error(err))
		return msgs, fmt.Errorf("fetching %s: %w", account.ID(), err)
	}

	log.Info("Fetched messages",
		zap.Uint32("from", from),
		zap.Uint32("to", to),
		zap.Int("read", len(msgs)),
		zap.Int("skipped", skipped))
	return msgs, nil
}

func (f *Fetcher) acquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active[id] {
		return false
	}
	f.active[id] = true
	return true
}

func (f *Fetcher) release(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, id)
}
