package notify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func interested() core.Message {
	return core.Message{
		Subject: "Can we schedule a demo?",
		From:    "a@x.com",
		Date:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Folder:  "INBOX",
		Account: "me@example.com",
		Label:   core.LabelInterested,
		Body:    "Next week works for us.",
	}
}

type recorder struct {
	mu     sync.Mutex
	bodies [][]byte
	status int
}

func (r *recorder) handler(w http.ResponseWriter, req *http.Request) {
	b, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.bodies = append(r.bodies, b)
	r.mu.Unlock()
	if r.status != 0 {
		w.WriteHeader(r.status)
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func TestSlackNotifier(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client())
	require.True(t, n.Enabled())
	require.NoError(t, n.Notify(context.Background(), interested()))

	require.Equal(t, 1, rec.count())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.bodies[0], &body))
	assert.Equal(t, "*Interested Email Received*\n*From:* a@x.com\n*Subject:* Can we schedule a demo?", body["text"])
}

func TestWebhookNotifier(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, srv.Client())
	require.NoError(t, n.Notify(context.Background(), interested()))

	require.Equal(t, 1, rec.count())
	var p WebhookPayload
	require.NoError(t, json.Unmarshal(rec.bodies[0], &p))
	assert.Equal(t, EventID(interested()), p.EventID)
	assert.Equal(t, "a@x.com", p.From)
	assert.Equal(t, "Can we schedule a demo?", p.Subject)
	assert.Equal(t, "Next week works for us.", p.Body)
	assert.Equal(t, "Interested", p.Category)
}

func TestEventID_StablePerMessage(t *testing.T) {
	a := interested()
	b := interested()
	b.Label = core.LabelMeetingBooked
	b.Body = "changed"
	assert.Equal(t, EventID(a), EventID(b))

	other := interested()
	other.Subject = "Another thread"
	assert.NotEqual(t, EventID(a), EventID(other))
}

func TestWebhookNotifier_Non2xxIsFailure(t *testing.T) {
	rec := &recorder{status: http.StatusBadGateway}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, srv.Client()).Notify(context.Background(), interested())
	assert.ErrorIs(t, err, core.ErrNotification)
}

func TestNotifiers_DisabledWithoutTarget(t *testing.T) {
	assert.False(t, NewSlackNotifier("", nil).Enabled())
	assert.False(t, NewWebhookNotifier("", nil).Enabled())
	assert.False(t, NewSMTPNotifier(config.SMTPConfig{Addr: "localhost:25"}, zap.NewNop()).Enabled())
	assert.False(t, NewSMTPNotifier(config.SMTPConfig{To: []string{"ops@example.com"}}, zap.NewNop()).Enabled())
}

func TestFanout_WebhookOnly(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	f := NewFanout([]core.Notifier{
		NewSlackNotifier("", nil),
		NewWebhookNotifier(srv.URL, srv.Client()),
	}, time.Second, zap.NewNop())

	res := f.Dispatch(context.Background(), interested())
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, []string{"webhook"}, res.Delivered)
	assert.Equal(t, []string{"slack"}, res.Skipped)
	assert.Empty(t, res.Failed)
}

type fakeNotifier struct {
	name  string
	err   error
	delay time.Duration
	calls int32
}

func (f *fakeNotifier) Name() string  { return f.name }
func (f *fakeNotifier) Enabled() bool { return true }
func (f *fakeNotifier) Notify(ctx context.Context, _ core.Message) error {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func TestFanout_FailureIsolation(t *testing.T) {
	broken := &fakeNotifier{name: "slack", err: errors.New("connection refused")}
	slow := &fakeNotifier{name: "smtp", delay: time.Second}
	ok := &fakeNotifier{name: "webhook"}

	f := NewFanout([]core.Notifier{broken, slow, ok}, 50*time.Millisecond, zap.NewNop())
	res := f.Dispatch(context.Background(), interested())

	assert.Equal(t, []string{"webhook"}, res.Delivered)
	assert.Equal(t, []string{"slack", "smtp"}, res.Failed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&broken.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&ok.calls))
}

type smtpBackend struct {
	mu       sync.Mutex
	from     string
	to       []string
	data     []byte
	overTLS  bool
	user     string
	password string

	// withAuth makes sessions offer AUTH PLAIN
	withAuth bool
}

func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	s := &smtpSession{b: b, conn: c}
	if b.withAuth {
		return &authSession{s}, nil
	}
	return s, nil
}

type smtpSession struct {
	b    *smtpBackend
	conn *smtp.Conn
}

type authSession struct {
	*smtpSession
}

func (s *authSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *authSession) Auth(string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()
		s.b.user, s.b.password = username, password
		return nil
	}), nil
}

func (s *smtpSession) Reset()        {}
func (s *smtpSession) Logout() error { return nil }

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.from = from
	_, s.b.overTLS = s.conn.TLSConnectionState()
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.to = append(s.b.to, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.data = data
	return nil
}

func TestSMTPNotifier(t *testing.T) {
	be := &smtpBackend{}
	srv := smtp.NewServer(be)
	srv.Domain = "localhost"

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(l)
	defer srv.Close()

	n := NewSMTPNotifier(config.SMTPConfig{
		Addr: l.Addr().String(),
		From: "onebox@example.com",
		To:   []string{"ops@example.com"},
	}, zap.NewNop())
	require.True(t, n.Enabled())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Notify(ctx, interested()))

	be.mu.Lock()
	defer be.mu.Unlock()
	assert.Equal(t, "onebox@example.com", be.from)
	assert.Equal(t, []string{"ops@example.com"}, be.to)
	assert.Contains(t, string(be.data), "Subject: [Interested] Can we schedule a demo?")
	assert.Contains(t, string(be.data), "Next week works for us.")
}

func TestSMTPNotifier_StartTLSWithAuth(t *testing.T) {
	certSrv := httptest.NewTLSServer(http.NotFoundHandler())
	defer certSrv.Close()

	be := &smtpBackend{withAuth: true}
	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	srv.TLSConfig = &tls.Config{Certificates: certSrv.TLS.Certificates}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(l)
	defer srv.Close()

	roots := x509.NewCertPool()
	roots.AddCert(certSrv.Certificate())

	n := NewSMTPNotifier(config.SMTPConfig{
		Addr:     l.Addr().String(),
		StartTLS: true,
		Username: "onebox",
		Password: "s3cret",
		To:       []string{"ops@example.com"},
	}, zap.NewNop()).WithTLSConfig(&tls.Config{RootCAs: roots})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Notify(ctx, interested()))

	be.mu.Lock()
	defer be.mu.Unlock()
	assert.True(t, be.overTLS)
	assert.Equal(t, "onebox", be.user)
	assert.Equal(t, "s3cret", be.password)
	assert.Equal(t, "onebox", be.from)
	assert.Contains(t, string(be.data), "Subject: [Interested] Can we schedule a demo?")
}

func TestSMTPNotifier_StartTLSRejectsUntrustedRelay(t *testing.T) {
	certSrv := httptest.NewTLSServer(http.NotFoundHandler())
	defer certSrv.Close()

	be := &smtpBackend{}
	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	srv.TLSConfig = &tls.Config{Certificates: certSrv.TLS.Certificates}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(l)
	defer srv.Close()

	n := NewSMTPNotifier(config.SMTPConfig{
		Addr:     l.Addr().String(),
		StartTLS: true,
		From:     "onebox@example.com",
		To:       []string{"ops@example.com"},
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = n.Notify(ctx, interested())
	assert.ErrorIs(t, err, core.ErrNotification)

	be.mu.Lock()
	defer be.mu.Unlock()
	assert.Empty(t, be.data)
}
