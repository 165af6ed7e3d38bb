package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Retrier runs an idempotent call with a bounded retry policy
type Retrier interface {
	Do(ctx context.Context, op string, fn func(ctx context.Context) error) error
}

// ClassificationOptions tunes the classification service
type ClassificationOptions struct {
	CacheEnabled  bool
	CacheTTL      time.Duration
	StrictLabels  bool
	Timeout       time.Duration
	RatePerSecond float64
}

// ClassificationService assigns a taxonomy label to messages
type ClassificationService struct {
	classifier Classifier
	cache      CacheRepository
	rules      SenderRules
	retrier    Retrier
	limiter    *rate.Limiter
	logger     *zap.Logger
	opts       ClassificationOptions
}

// NewClassificationService creates a new classification service. cache and
// rules may be nil.
func NewClassificationService(
	classifier Classifier,
	cache CacheRepository,
	rules SenderRules,
	retrier Retrier,
	logger *zap.Logger,
	opts ClassificationOptions,
) *ClassificationService {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &ClassificationService{
		classifier: classifier,
		cache:      cache,
		rules:      rules,
		retrier:    retrier,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
		opts:       opts,
	}
}

// Classify returns the label for msg. Errors wrap ErrClassification.
func (s *ClassificationService) Classify(ctx context.Context, msg Message) (Label, error) {
	if s.rules != nil {
		if label, ok := s.rules.Lookup(msg.From); ok {
			s.logger.Debug("Sender rule matched",
				zap.String("sender", msg.From),
				zap.String("label", string(label)))
			return label, nil
		}
	}

	key := msg.Key()
	if s.opts.CacheEnabled && s.cache != nil {
		if entry, err := s.cache.Get(ctx, key); err == nil {
			s.logger.Debug("Cache hit for message", zap.String("subject", msg.Subject))
			return entry.Label, nil
		}
	}

	label, err := s.ClassifyText(ctx, msg.ClassificationText())
	if err != nil {
		return "", err
	}

	if s.opts.CacheEnabled && s.cache != nil {
		now := time.Now()
		entry := &CacheEntry{
			Key:       key,
			Label:     label,
			LastSeen:  now,
			ExpiresAt: now.Add(s.opts.CacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return label, nil
}

// ClassifyText classifies free text, bypassing sender rules and the cache
func (s *ClassificationService) ClassifyText(ctx context.Context, text string) (Label, error) {
	var label Label
	call := func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if s.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
			defer cancel()
		}
		raw, err := s.classifier.Classify(ctx, text)
		if err != nil {
			return err
		}
		label, err = s.interpret(raw)
		return err
	}

	var err error
	if s.retrier != nil {
		err = s.retrier.Do(ctx, "classify", call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrClassification) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrClassification, err)
	}
	return label, nil
}

func (s *ClassificationService) interpret(raw string) (Label, error) {
	label, err := ParseLabel(raw)
	if err == nil {
		return label, nil
	}
	if s.opts.StrictLabels {
		return "", err
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", err
	}
	s.logger.Warn("Accepting label outside taxonomy", zap.String("label", trimmed))
	return Label(trimmed), nil
}
