package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cuongbtq/geophoto-worker/shared/clock"
)

// Policy describes how a remote operation is retried
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	AttemptTimeout time.Duration
}

// DefaultPolicy returns the policy used when none is configured
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		AttemptTimeout: 30 * time.Second,
	}
}

// Backoff returns the delay to wait after the given failed attempt (1-based)
func (p Policy) Backoff(attempt int) time.Duration {
	base := p.InitialBackoff
	if base <= 0 {
		return 0
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	delay := float64(base) * math.Pow(mult, float64(attempt-1))
	if p.MaxBackoff > 0 && delay > float64(p.MaxBackoff) {
		return p.MaxBackoff
	}
	if delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// RetryableError marks an error as transient regardless of its type
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsTransient reports whether err is worth another attempt
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var classified interface{ Retryable() bool }
	if errors.As(err, &classified) {
		return classified.Retryable()
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}

// Retrier executes operations under a Policy
type Retrier struct {
	policy  Policy
	clock   clock.Clock
	logger  *slog.Logger
	onRetry func(operation string, attempt int, err error)
}

// Option configures a Retrier
type Option func(*Retrier)

// WithOnRetry registers a callback invoked before every retry wait
func WithOnRetry(fn func(operation string, attempt int, err error)) Option {
	return func(r *Retrier) {
		r.onRetry = fn
	}
}

// New creates a Retrier. A zero MaxAttempts is treated as a single attempt.
func New(policy Policy, clk clock.Clock, logger *slog.Logger, opts ...Option) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Retrier{
		policy: policy,
		clock:  clk,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the policy in use
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs fn until it succeeds, returns a non-transient error, the attempts
// are exhausted, or ctx is done. Each attempt gets its own timeout.
func (r *Retrier) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%s: %w", operation, lastErr)
			}
			return err
		}

		lastErr = r.attempt(ctx, fn)
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info("Operation succeeded after retry",
					slog.String("operation", operation),
					slog.Int("attempt", attempt),
				)
			}
			return nil
		}

		if !IsTransient(lastErr) || ctx.Err() != nil {
			if attempt == 1 {
				return lastErr
			}
			return fmt.Errorf("%s failed after %d attempts: %w", operation, attempt, lastErr)
		}

		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Backoff(attempt)
		r.logger.Warn("Operation failed, retrying",
			slog.String("operation", operation),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.policy.MaxAttempts),
			slog.Duration("retry_after", delay),
			slog.Any("error", lastErr),
		)
		if r.onRetry != nil {
			r.onRetry(operation, attempt, lastErr)
		}

		if err := r.clock.Sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: %w", operation, lastErr)
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, r.policy.MaxAttempts, lastErr)
}

func (r *Retrier) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.policy.AttemptTimeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

// Value is Do for operations that produce a result
func Value[T any](ctx context.Context, r *Retrier, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
