package utils

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// GuardConfig bounds retries and the breaker of a Guard
type GuardConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	BreakerFailures int
	BreakerTimeout  time.Duration

	// Ignore reports errors that are retried but never count against the
	// breaker, such as a healthy provider giving an unusable answer
	Ignore func(err error) bool
}

// Guard runs idempotent external calls behind a circuit breaker with bounded
// exponential backoff.
type Guard struct {
	name   string
	cfg    GuardConfig
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// permanentError is not retried and does not count against the breaker.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// NewGuard creates a guard named after the dependency it protects
func NewGuard(name string, cfg GuardConfig, logger *zap.Logger) *Guard {
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	failures := uint32(cfg.BreakerFailures)
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || (cfg.Ignore != nil && cfg.Ignore(err))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Guard{
		name:   name,
		cfg:    cfg,
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
	}
}

// Do runs fn until it succeeds, returns a permanent error, the breaker opens,
// the retry budget is spent or ctx is done. The last error is returned
// without the permanent marker.
func (g *Guard) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = g.cfg.InitialInterval
	eb.MaxInterval = g.cfg.MaxInterval
	eb.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(g.cfg.MaxRetries)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var perm *permanentError
		_, err := g.cb.Execute(func() (interface{}, error) {
			callErr := fn(ctx)
			if errors.As(callErr, &perm) {
				// Caller mistakes must not open the breaker.
				return nil, nil
			}
			return nil, callErr
		})
		if perm != nil {
			return backoff.Permanent(perm.err)
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		g.logger.Debug("External call failed",
			zap.String("guard", g.name),
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return err
	}, policy)
	return err
}
