package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mikey/email-onebox/internal/core"
)

// MemoryStore is an in-process index for tests and ephemeral runs
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]core.Message
	notified map[string]bool
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]core.Message),
		notified: make(map[string]bool),
	}
}

// Upsert writes msg, replacing any document with the same key. An unlabeled
// write keeps the label already stored.
func (s *MemoryStore) Upsert(_ context.Context, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := msg.Key()
	if prev, ok := s.docs[key]; ok && msg.Label == "" {
		msg.Label = prev.Label
	}
	s.docs[key] = msg
	return nil
}

// MarkNotified returns true only for the first call on an indexed document
func (s *MemoryStore) MarkNotified(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[key]; !ok || s.notified[key] {
		return false, nil
	}
	s.notified[key] = true
	return true, nil
}

// Search returns up to q.Limit() matching messages, newest first
func (s *MemoryStore) Search(_ context.Context, q core.SearchQuery) ([]core.Message, error) {
	for _, c := range q.Clauses {
		if _, ok := searchColumns[c.Field]; !ok {
			return nil, fmt.Errorf("%w: unsupported search field %q", core.ErrValidation, c.Field)
		}
	}

	s.mu.RLock()
	out := make([]core.Message, 0, len(s.docs))
	for _, m := range s.docs {
		if q.Matches(m) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > q.Limit() {
		out = out[:q.Limit()]
	}
	return out, nil
}

// ClearAll deletes every document
func (s *MemoryStore) ClearAll(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.docs))
	s.docs = make(map[string]core.Message)
	s.notified = make(map[string]bool)
	return n, nil
}

// Count returns the number of documents
func (s *MemoryStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}
