package vector

import (
	"context"
	"sync"

	"github.com/mikey/email-onebox/internal/core"
)

// MemoryStore keeps collections in process memory
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]core.VectorRecord
	dist        Distance
}

// NewMemoryStore creates an empty store scoring with dist
func NewMemoryStore(dist Distance) *MemoryStore {
	if dist == nil {
		dist = L2
	}
	return &MemoryStore{
		collections: make(map[string][]core.VectorRecord),
		dist:        dist,
	}
}

// Add inserts records, replacing any with the same ID
func (s *MemoryStore) Add(_ context.Context, collection string, records []core.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.collections[collection]
	pos := make(map[string]int, len(existing))
	for i, r := range existing {
		pos[r.ID] = i
	}
	for _, r := range records {
		r.Vector = append([]float32(nil), r.Vector...)
		if i, ok := pos[r.ID]; ok {
			existing[i] = r
			continue
		}
		pos[r.ID] = len(existing)
		existing = append(existing, r)
	}
	s.collections[collection] = existing
	return nil
}

// Query returns the topK records closest to vector
func (s *MemoryStore) Query(_ context.Context, collection string, vector []float32, topK int) ([]core.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rank(s.collections[collection], vector, topK, s.dist), nil
}

// Count returns the number of records in collection
func (s *MemoryStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection]), nil
}

// Reset drops collection
func (s *MemoryStore) Reset(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}
