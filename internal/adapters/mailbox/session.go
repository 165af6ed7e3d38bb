package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/mikey/email-onebox/internal/adapters/mimeparse"
	"github.com/mikey/email-onebox/internal/core"
)

// Envelope is the metadata of one fetched message
type Envelope struct {
	SeqNum  uint32
	Subject string
	From    string
	Date    time.Time
	Body    string
}

// Session is an authenticated IMAP session
type Session interface {
	// Select opens folder read-write and returns its message count
	Select(ctx context.Context, folder string) (uint32, error)
	// Fetch calls fn for each message in [from, to], ascending
	Fetch(ctx context.Context, from, to uint32, withBody bool, fn func(Envelope) error) error
	// Unselect releases the selected folder
	Unselect(ctx context.Context) error
	Logout(ctx context.Context) error
}

// Dialer opens sessions
type Dialer interface {
	Dial(ctx context.Context, account core.Account) (Session, error)
}

// TLSDialer connects with implicit TLS and logs in
type TLSDialer struct {
	Timeout time.Duration
}

// Dial connects to the account's server and authenticates
func (d TLSDialer) Dial(ctx context.Context, account core.Account) (Session, error) {
	deadline := time.Now().Add(d.Timeout)
	if d.Timeout <= 0 {
		deadline = time.Time{}
	}
	if dl, ok := ctx.Deadline(); ok && (deadline.IsZero() || dl.Before(deadline)) {
		deadline = dl
	}

	netDialer := &net.Dialer{Deadline: deadline}
	conn, err := tls.DialWithDialer(netDialer, "tcp", account.Addr(), &tls.Config{ServerName: account.Host})
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", account.Addr(), err)
	}
	// The session only covers IMAP commands; messages are emitted after logout.
	if !deadline.IsZero() {
		_ = conn.SetDeadline(deadline)
	}

	client := imapclient.New(conn, nil)
	if err := client.Login(account.User, account.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("authentication failed for %s: %w", account.User, err)
	}

	return &imapSession{client: client}, nil
}

type imapSession struct {
	client *imapclient.Client
}

func (s *imapSession) Select(_ context.Context, folder string) (uint32, error) {
	data, err := s.client.Select(folder, nil).Wait()
	if err != nil {
		return 0, fmt.Errorf("selecting %s: %w", folder, err)
	}
	return data.NumMessages, nil
}

func (s *imapSession) Fetch(_ context.Context, from, to uint32, withBody bool, fn func(Envelope) error) error {
	var seqSet imap.SeqSet
	seqSet.AddRange(from, to)

	opts := &imap.FetchOptions{Envelope: true}
	bodySection := &imap.FetchItemBodySection{Peek: true}
	if withBody {
		opts.BodySection = []*imap.FetchItemBodySection{bodySection}
	}

	fetchCmd := s.client.Fetch(seqSet, opts)
	defer fetchCmd.Close()

	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			return fmt.Errorf("collecting message data: %w", err)
		}

		env := Envelope{SeqNum: buf.SeqNum}
		if buf.Envelope != nil {
			env.Subject = buf.Envelope.Subject
			env.Date = buf.Envelope.Date
			if len(buf.Envelope.From) > 0 {
				env.From = buf.Envelope.From[0].Addr()
			}
		}
		if withBody {
			if raw := buf.FindBodySection(bodySection); raw != nil {
				env.Body = mimeparse.ExtractText(raw)
			}
		}
		if err := fn(env); err != nil {
			return err
		}
	}

	if err := fetchCmd.Close(); err != nil {
		return fmt.Errorf("fetching envelopes: %w", err)
	}
	return nil
}

func (s *imapSession) Unselect(_ context.Context) error {
	return s.client.Unselect().Wait()
}

func (s *imapSession) Logout(_ context.Context) error {
	err := s.client.Logout().Wait()
	if closeErr := s.client.Close(); err == nil {
		err = closeErr
	}
	return err
}
