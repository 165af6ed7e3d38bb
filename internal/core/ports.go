package core

import (
	"context"
)

// Classifier sends text to an external classification service
type Classifier interface {
	// Classify returns the raw label text produced for the input
	Classify(ctx context.Context, text string) (string, error)
}

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator drafts free text from a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMClient is a provider that can classify, embed and generate
type LLMClient interface {
	Classifier
	Embedder
	Generator

	// Close releases the provider client
	Close() error
}

// CacheRepository caches classification results by message key
type CacheRepository interface {
	// Get retrieves a cached entry for a message key
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// IndexStore persists messages under their composite key and answers searches
type IndexStore interface {
	Upsert(ctx context.Context, msg Message) error
	Search(ctx context.Context, q SearchQuery) ([]Message, error)
	ClearAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)

	// MarkNotified claims the alert for an indexed document. Only the first
	// claim for a key returns true.
	MarkNotified(ctx context.Context, key string) (bool, error)
}

// VectorStore keeps named collections of embedded documents
type VectorStore interface {
	Add(ctx context.Context, collection string, records []VectorRecord) error
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]VectorMatch, error)
	Count(ctx context.Context, collection string) (int, error)
	Reset(ctx context.Context, collection string) error
}

// MailboxFetcher reads the most recent messages of one account
type MailboxFetcher interface {
	// Fetch calls emit for every complete message in the fetch window, in
	// ascending sequence order. A non-nil error from emit stops the fetch.
	Fetch(ctx context.Context, account Account, emit func(Message) error) error
}

// Notifier delivers an alert about a message to one sink
type Notifier interface {
	Name() string
	// Enabled is false when the sink has no target configured
	Enabled() bool
	Notify(ctx context.Context, msg Message) error
}

// DispatchResult records the outcome per sink name
type DispatchResult struct {
	Delivered []string
	Skipped   []string
	Failed    []string
}

// Dispatcher fans a message out to every configured sink
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) DispatchResult
}

// SenderRules assigns a fixed label to mail from known senders
type SenderRules interface {
	Lookup(from string) (Label, bool)
}

// MessageHandler is invoked by the sync orchestrator for every fetched message
type MessageHandler func(ctx context.Context, msg Message)
