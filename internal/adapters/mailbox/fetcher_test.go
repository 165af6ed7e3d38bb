package mailbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikey/email-onebox/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSession struct {
	mu        sync.Mutex
	events    []string
	envelopes []Envelope
	selectErr error
	fetchErr  error
	failAt    uint32
	count     uint32
	block     chan struct{}
	fetched   [2]uint32
}

func (s *fakeSession) record(e string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *fakeSession) Select(_ context.Context, folder string) (uint32, error) {
	s.record("select:" + folder)
	if s.selectErr != nil {
		return 0, s.selectErr
	}
	if s.count != 0 {
		return s.count, nil
	}
	return uint32(len(s.envelopes)), nil
}

func (s *fakeSession) Fetch(_ context.Context, from, to uint32, _ bool, fn func(Envelope) error) error {
	s.record("fetch")
	s.fetched = [2]uint32{from, to}
	if s.block != nil {
		<-s.block
	}
	if s.fetchErr != nil && s.failAt == 0 {
		return s.fetchErr
	}
	for _, env := range s.envelopes {
		if env.SeqNum < from || env.SeqNum > to {
			continue
		}
		if s.failAt != 0 && env.SeqNum == s.failAt {
			return s.fetchErr
		}
		if err := fn(env); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeSession) Unselect(context.Context) error {
	s.record("unselect")
	return nil
}

func (s *fakeSession) Logout(context.Context) error {
	s.record("logout")
	return nil
}

type fakeDialer struct {
	sessions map[string]*fakeSession
	err      map[string]error
	dials    int
	mu       sync.Mutex
}

func (d *fakeDialer) Dial(_ context.Context, account core.Account) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if err := d.err[account.User]; err != nil {
		return nil, err
	}
	return d.sessions[account.User], nil
}

func envelopes(n int) []Envelope {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Envelope, n)
	for i := range out {
		seq := uint32(i + 1)
		out[i] = Envelope{
			SeqNum:  seq,
			Subject: "subject " + string(rune('A'+i)),
			From:    "sender@example.com",
			Date:    base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

var acct = core.Account{User: "a@x.com", Host: "imap.x.com", Port: 993, Folder: "INBOX"}

func collect(t *testing.T, f *Fetcher, account core.Account) ([]core.Message, error) {
	t.Helper()
	var got []core.Message
	err := f.Fetch(context.Background(), account, func(m core.Message) error {
		got = append(got, m)
		return nil
	})
	return got, err
}

func TestWindow(t *testing.T) {
	tests := []struct {
		count    uint32
		window   int
		from, to uint32
		ok       bool
	}{
		{0, 6, 0, 0, false},
		{1, 6, 1, 1, true},
		{6, 6, 1, 6, true},
		{7, 6, 2, 7, true},
		{100, 6, 95, 100, true},
		{100, 1, 100, 100, true},
	}
	for _, tt := range tests {
		from, to, ok := Window(tt.count, tt.window)
		assert.Equal(t, tt.ok, ok, "count=%d", tt.count)
		assert.Equal(t, tt.from, from, "count=%d", tt.count)
		assert.Equal(t, tt.to, to, "count=%d", tt.count)
	}
}

func TestFetch_EmitsNewestWindowInOrder(t *testing.T) {
	s := &fakeSession{envelopes: envelopes(10)}
	f := NewFetcher(&fakeDialer{sessions: map[string]*fakeSession{"a@x.com": s}}, Options{}, zap.NewNop())

	got, err := collect(t, f, acct)
	require.NoError(t, err)

	require.Len(t, got, 6)
	assert.Equal(t, [2]uint32{5, 10}, s.fetched)
	for i, m := range got {
		assert.Equal(t, "a@x.com", m.Account)
		assert.Equal(t, "INBOX", m.Folder)
		if i > 0 {
			assert.True(t, m.Date.After(got[i-1].Date), "ascending order")
		}
	}
	assert.Equal(t, []string{"select:INBOX", "fetch", "unselect", "logout"}, s.events)
}

func TestFetch_SkipsPartialEnvelopes(t *testing.T) {
	envs := envelopes(5)
	envs[0].Subject = ""
	envs[2].From = ""
	envs[4].Date = time.Time{}
	s := &fakeSession{envelopes: envs}
	f := NewFetcher(&fakeDialer{sessions: map[string]*fakeSession{"a@x.com": s}}, Options{}, zap.NewNop())

	got, err := collect(t, f, acct)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(got), len(envs))
	require.Len(t, got, 2)
	for _, m := range got {
		assert.NotEmpty(t, m.Subject)
		assert.NotEmpty(t, m.From)
		assert.False(t, m.Date.IsZero())
	}
}

func TestFetch_EmptyFolder(t *testing.T) {
	s := &fakeSession{}
	f := NewFetcher(&fakeDialer{sessions: map[string]*fakeSession{"a@x.com": s}}, Options{}, zap.NewNop())

	got, err := collect(t, f, acct)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []string{"select:INBOX", "unselect", "logout"}, s.events)
}

func TestFetch_ConnectFailure(t *testing.T) {
	d := &fakeDialer{err: map[string]error{"a@x.com": errors.New("dial tcp: refused")}}
	f := NewFetcher(d, Options{}, zap.NewNop())

	_, err := collect(t, f, acct)
	assert.ErrorIs(t, err, core.ErrConnection)

	// The account lock is free again.
	d.err = nil
	d.sessions = map[string]*fakeSession{"a@x.com": {envelopes: envelopes(1)}}
	got, err := collect(t, f, acct)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFetch_SelectFailureStillLogsOut(t *testing.T) {
	s := &fakeSession{selectErr: errors.New("NO no such mailbox")}
	f := NewFetcher(&fakeDialer{sessions: map[string]*fakeSession{"a@x.com": s}}, Options{}, zap.NewNop())

	_, err := collect(t, f, acct)
	assert.ErrorIs(t, err, core.ErrConnection)
	assert.Equal(t, []string{"select:INBOX", "logout"}, s.events)
}

func TestFetch_MidWindowFailureAbortsAndReleases(t *testing.T) {
	boom := errors.New("connection reset")
	s := &fakeSession{envelopes: envelopes(6), fetchErr: boom, failAt: 4}
	f := NewFetcher(&fakeDialer{sessions: map[string]*fakeSession{"a@x.com": s}}, Options{}, zap.NewNop())

	got, err := collect(t, f, acct)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, got, 3, "messages before the failure were already emitted")
	assert.Equal(t, []string{"select:INBOX", "fetch", "unselect", "logout"}, s.events,
		"folder released before logout")
}

func TestFetch_EmitErrorStopsFetch(t *testing.T) {
	s := &fakeSession{envelopes: envelopes(6)}
	f := NewFetcher(&fakeDialer{sessions: map[string]*fakeSession{"a@x.com": s}}, Options{}, zap.NewNop())

	stop := errors.New("stop")
	calls := 0
	err := f.Fetch(context.Background(), acct, func(core.Message) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
	assert.Contains(t, s.events, "logout")
}

func TestFetch_OneSessionPerAccount(t *testing.T) {
	s := &fakeSession{envelopes: envelopes(2), block: make(chan struct{})}
	d := &fakeDialer{sessions: map[string]*fakeSession{"a@x.com": s}}
	f := NewFetcher(d, Options{}, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := collect(t, f, acct)
		done <- err
	}()

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.events) >= 2
	}, time.Second, time.Millisecond)

	_, err := collect(t, f, acct)
	assert.ErrorIs(t, err, ErrSessionBusy)
	assert.ErrorIs(t, err, core.ErrConnection)

	close(s.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, d.dials)
}

func TestFetch_EmitsAfterSessionClosed(t *testing.T) {
	s := &fakeSession{envelopes: envelopes(3)}
	f := NewFetcher(&fakeDialer{sessions: map[string]*fakeSession{"a@x.com": s}}, Options{}, zap.NewNop())

	var eventsAtEmit [][]string
	err := f.Fetch(context.Background(), acct, func(core.Message) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		eventsAtEmit = append(eventsAtEmit, append([]string(nil), s.events...))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, eventsAtEmit, 3)
	for _, events := range eventsAtEmit {
		assert.Equal(t, []string{"select:INBOX", "fetch", "unselect", "logout"}, events)
	}
}

func TestFetch_CustomWindow(t *testing.T) {
	s := &fakeSession{envelopes: envelopes(10)}
	f := NewFetcher(&fakeDialer{sessions: map[string]*fakeSession{"a@x.com": s}}, Options{Window: 3}, zap.NewNop())

	got, err := collect(t, f, acct)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, [2]uint32{8, 10}, s.fetched)
}
