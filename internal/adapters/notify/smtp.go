package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// SMTPNotifier mails a plain-text alert through a relay
type SMTPNotifier struct {
	cfg       config.SMTPConfig
	tlsConfig *tls.Config
	logger    *zap.Logger
}

// NewSMTPNotifier creates a mail sink. It is disabled until both the relay
// address and at least one recipient are configured.
func NewSMTPNotifier(cfg config.SMTPConfig, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

// WithTLSConfig sets the base TLS settings used for STARTTLS. ServerName
// defaults to the relay host.
func (n *SMTPNotifier) WithTLSConfig(c *tls.Config) *SMTPNotifier {
	n.tlsConfig = c
	return n
}

func (n *SMTPNotifier) Name() string { return "smtp" }

func (n *SMTPNotifier) Enabled() bool { return n.cfg.Addr != "" && len(n.cfg.To) > 0 }

// Notify sends the alert
func (n *SMTPNotifier) Notify(ctx context.Context, msg core.Message) error {
	if err := n.send(ctx, n.buildMessage(msg)); err != nil {
		return fmt.Errorf("%w: %w", core.ErrNotification, err)
	}
	return nil
}

func (n *SMTPNotifier) send(ctx context.Context, data []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", n.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c, err := n.newClient(conn)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if n.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", n.cfg.Username, n.cfg.Password)); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := c.Mail(n.sender(), nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := false
	for _, rcpt := range n.cfg.To {
		if err := c.Rcpt(rcpt, nil); err != nil {
			n.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", rcpt),
				zap.Error(err))
			continue
		}
		accepted = true
	}
	if !accepted {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send alert data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		n.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// newClient greets the relay, upgrading to TLS first when configured
func (n *SMTPNotifier) newClient(conn net.Conn) (*smtp.Client, error) {
	if n.cfg.StartTLS {
		c, err := smtp.NewClientStartTLS(conn, n.clientTLSConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
		return c, nil
	}

	c := smtp.NewClient(conn)
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	if err := c.Hello(hostname); err != nil {
		c.Close()
		return nil, fmt.Errorf("EHLO failed: %w", err)
	}
	return c, nil
}

func (n *SMTPNotifier) clientTLSConfig() *tls.Config {
	cfg := &tls.Config{}
	if n.tlsConfig != nil {
		cfg = n.tlsConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName, _, _ = net.SplitHostPort(n.cfg.Addr)
	}
	return cfg
}

func (n *SMTPNotifier) sender() string {
	if n.cfg.From != "" {
		return n.cfg.From
	}
	return n.cfg.Username
}

func (n *SMTPNotifier) buildMessage(msg core.Message) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", n.sender())
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(n.cfg.To, ", "))
	fmt.Fprintf(&buf, "Subject: [%s] %s\r\n", msg.Label, headerSafe(msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	fmt.Fprintf(&buf, "Account: %s\r\n", msg.Account)
	fmt.Fprintf(&buf, "From: %s\r\n", msg.From)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "Received: %s\r\n", msg.Date.Format(time.RFC1123Z))
	if msg.Body != "" {
		buf.WriteString("\r\n")
		buf.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
