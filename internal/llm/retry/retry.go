// Package retry provides a bounded-retry combinator with exponential backoff
// for backend generation calls. The combinator is composed once and reused
// for every external call site instead of re-implementing retry loops inline.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahrav/go-synth/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-synth/internal/llm/errors"
)

// Runtime errors.
var (
	errContextCancelledBeforeRetry = errors.New("context cancelled before retry")
	errContextCancelledDuringRetry = errors.New("context cancelled during retry")
)

// RetryAfterProvider is implemented by error types that carry a
// provider-specified duration to wait before the next attempt.
type RetryAfterProvider interface {
	GetRetryAfter() time.Duration
}

// Do runs fn up to cfg.MaxAttempts times, sleeping Backoff between failed
// attempts and honoring context cancellation during the wait. A per-attempt
// timeout, when positive, bounds each invocation independently. Attempts stop
// early on the first non-retryable error. On exhaustion the last error is
// wrapped with ErrMaxRetriesExceeded.
func Do(ctx context.Context, cfg configuration.RetryConfig, perAttemptTimeout time.Duration, fn func(ctx context.Context) error) error {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	// Fail fast if the context is already cancelled.
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", errContextCancelledBeforeRetry, ctx.Err())
	default:
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if perAttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, perAttemptTimeout)
		}
		err := fn(attemptCtx)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			if attempt > 1 {
				slog.Debug("call succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		lastErr = err

		// A per-attempt timeout is retryable; a cancelled parent is not.
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", errContextCancelledDuringRetry, ctx.Err())
		}
		if !isRetryable(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		backoff := Backoff(attempt, cfg)
		if ra := extractRetryAfter(err); ra > 0 {
			// Provider-specified delay takes precedence.
			backoff = ra
		}

		slog.Debug("retrying after backoff", "attempt", attempt, "backoff", backoff, "error", err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", errContextCancelledDuringRetry, ctx.Err())
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", llmerrors.ErrMaxRetriesExceeded, maxAttempts, lastErr)
}

// Backoff computes the retry delay for the given 1-based attempt:
// InitialInterval * Multiplier^(attempt-1), capped at MaxInterval, with
// optional full jitter. Returns zero for non-positive attempts.
func Backoff(attempt int, cfg configuration.RetryConfig) time.Duration {
	if attempt <= 0 {
		return 0
	}

	backoff := cfg.InitialInterval
	if backoff <= 0 {
		backoff = time.Millisecond // minimum to prevent hot looping
	}
	multiplier := cfg.Multiplier
	if multiplier < 1.0 {
		multiplier = 1.0
	}
	for i := 1; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * multiplier)
		if cfg.MaxInterval > 0 && backoff > cfg.MaxInterval {
			backoff = cfg.MaxInterval
			break
		}
	}

	if cfg.UseJitter {
		return fullJitter(backoff)
	}
	return backoff
}

// isRetryable classifies errors for the retry loop: deadline expiry and
// classified transient backend failures retry, everything else stops.
func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return llmerrors.IsRetryableError(err)
}

// extractRetryAfter pulls provider retry-after guidance out of an error
// chain, or zero when none is present.
func extractRetryAfter(err error) time.Duration {
	var provider RetryAfterProvider
	if errors.As(err, &provider) {
		return provider.GetRetryAfter()
	}
	if seconds := llmerrors.GetRetryAfter(err); seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}
