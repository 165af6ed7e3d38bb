// Package reply drafts replies grounded in the nearest stored example.
package reply

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// DefaultCollection is the vector collection holding the reply corpus
const DefaultCollection = "reply-data"

// Engine suggests replies by one-shot nearest-neighbour retrieval
type Engine struct {
	embedder   core.Embedder
	generator  core.Generator
	store      core.VectorStore
	retrier    core.Retrier
	collection string
	logger     *zap.Logger
}

// NewEngine creates a reply engine. retrier may be nil.
func NewEngine(
	embedder core.Embedder,
	generator core.Generator,
	store core.VectorStore,
	retrier core.Retrier,
	collection string,
	logger *zap.Logger,
) *Engine {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Engine{
		embedder:   embedder,
		generator:  generator,
		store:      store,
		retrier:    retrier,
		collection: collection,
		logger:     logger,
	}
}

// Prompt builds the generation prompt from the incoming text and the example reply
func Prompt(text, example string) string {
	return fmt.Sprintf("Suggest a reply to: \"%s\" based on this example: \"%s\"", text, example)
}

// SuggestReply drafts a reply to text. The generated text is returned as is.
func (e *Engine) SuggestReply(ctx context.Context, text string) (string, error) {
	vec, err := e.embed(ctx, text)
	if err != nil {
		return "", err
	}

	matches, err := e.store.Query(ctx, e.collection, vec, 1)
	if err != nil {
		return "", fmt.Errorf("failed to query reply examples: %w", err)
	}
	if len(matches) == 0 || matches[0].Document == "" {
		return "", fmt.Errorf("%w in collection %s", core.ErrNoMatchFound, e.collection)
	}

	e.logger.Debug("Nearest reply example",
		zap.String("id", matches[0].ID),
		zap.Float64("distance", matches[0].Distance))

	var reply string
	err = e.do(ctx, "generate", func(ctx context.Context) error {
		var err error
		reply, err = e.generator.Generate(ctx, Prompt(text, matches[0].Document))
		return err
	})
	if err != nil {
		return "", wrapAs(core.ErrGeneration, err)
	}
	return reply, nil
}

// Seed embeds every example input and stores its output under example-<i>.
// Examples that fail to embed are logged and skipped.
func (e *Engine) Seed(ctx context.Context, examples []core.TrainingExample) (int, error) {
	records := make([]core.VectorRecord, 0, len(examples))
	var lastErr error
	for i, ex := range examples {
		id := fmt.Sprintf("example-%d", i)
		vec, err := e.embed(ctx, ex.Input)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			e.logger.Error("Failed to embed reply example",
				zap.String("id", id),
				zap.String("op", "embed"),
				zap.Error(err))
			lastErr = err
			continue
		}
		records = append(records, core.VectorRecord{ID: id, Vector: vec, Document: ex.Output})
	}

	if len(records) == 0 {
		if lastErr != nil {
			return 0, lastErr
		}
		return 0, nil
	}
	if err := e.store.Add(ctx, e.collection, records); err != nil {
		return 0, fmt.Errorf("failed to store reply examples: %w", err)
	}

	e.logger.Info("Reply examples stored",
		zap.String("collection", e.collection),
		zap.Int("stored", len(records)),
		zap.Int("skipped", len(examples)-len(records)))
	return len(records), nil
}

// EnsureSeeded seeds the collection only when it is empty
func (e *Engine) EnsureSeeded(ctx context.Context, examples []core.TrainingExample) (int, error) {
	n, err := e.store.Count(ctx, e.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to count reply examples: %w", err)
	}
	if n > 0 {
		e.logger.Debug("Reply collection already seeded",
			zap.String("collection", e.collection),
			zap.Int("count", n))
		return 0, nil
	}
	return e.Seed(ctx, examples)
}

// Reseed drops the collection and stores examples again
func (e *Engine) Reseed(ctx context.Context, examples []core.TrainingExample) (int, error) {
	if err := e.store.Reset(ctx, e.collection); err != nil {
		return 0, fmt.Errorf("failed to reset reply collection: %w", err)
	}
	return e.Seed(ctx, examples)
}

// Count returns the number of stored examples
func (e *Engine) Count(ctx context.Context) (int, error) {
	return e.store.Count(ctx, e.collection)
}

func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := e.do(ctx, "embed", func(ctx context.Context) error {
		var err error
		vec, err = e.embedder.Embed(ctx, text)
		return err
	})
	if err != nil {
		return nil, wrapAs(core.ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", core.ErrEmbedding)
	}
	return vec, nil
}

func (e *Engine) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if e.retrier == nil {
		return fn(ctx)
	}
	return e.retrier.Do(ctx, op, fn)
}

func wrapAs(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
