package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type fakeClassifier struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	texts     []string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.texts = append(f.texts, text)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

type fakeCache struct {
	entries map[string]*CacheEntry
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*CacheEntry)}
}

func (c *fakeCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	e, ok := c.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(e.ExpiresAt) {
		return nil, ErrExpired
	}
	return e, nil
}

func (c *fakeCache) Set(_ context.Context, e *CacheEntry) error {
	c.entries[e.Key] = e
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) Cleanup(context.Context) error { return nil }

// loopRetrier retries up to attempts times without sleeping.
type loopRetrier struct {
	attempts int
}

func (r loopRetrier) Do(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	var err error
	for i := 0; i < r.attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}

type fakeIndex struct {
	mu        sync.Mutex
	docs      map[string]Message
	writes    []Message
	failFor   map[Label]bool
	notified  map[string]bool
	notifyErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		docs:     make(map[string]Message),
		failFor:  make(map[Label]bool),
		notified: make(map[string]bool),
	}
}

func (f *fakeIndex) MarkNotified(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notifyErr != nil {
		return false, f.notifyErr
	}
	if _, ok := f.docs[key]; !ok || f.notified[key] {
		return false, nil
	}
	f.notified[key] = true
	return true, nil
}

func (f *fakeIndex) Upsert(_ context.Context, m Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[m.Label] {
		return ErrIndexWrite
	}
	f.docs[m.Key()] = m
	f.writes = append(f.writes, m)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, q SearchQuery) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.docs {
		if q.Matches(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > q.Limit() {
		out = out[:q.Limit()]
	}
	return out, nil
}

func (f *fakeIndex) ClearAll(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.docs))
	f.docs = make(map[string]Message)
	return n, nil
}

func (f *fakeIndex) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.docs)), nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	msgs []Message
}

func (d *fakeDispatcher) Dispatch(_ context.Context, m Message) DispatchResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, m)
	return DispatchResult{Delivered: []string{"fake"}}
}

type mapRules map[string]Label

func (r mapRules) Lookup(from string) (Label, bool) {
	l, ok := r[from]
	return l, ok
}

var errUnavailable = errors.New("service unavailable")
