package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-synth/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-synth/internal/llm/errors"
)

func fastCfg(attempts int) configuration.RetryConfig {
	return configuration.RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func transientErr() error {
	return &llmerrors.ProviderError{
		Provider:   "openai",
		StatusCode: 503,
		Message:    "overloaded",
		Type:       llmerrors.ErrorTypeProvider,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastCfg(3), 0, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return transientErr()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	authErr := &llmerrors.ProviderError{
		Provider:   "openai",
		StatusCode: 401,
		Message:    "bad key",
		Type:       llmerrors.ErrorTypeAuth,
	}

	calls := 0
	err := Do(context.Background(), fastCfg(5), 0, func(ctx context.Context) error {
		calls++
		return authErr
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable errors must not retry")
	var pe *llmerrors.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, llmerrors.ErrorTypeAuth, pe.Type)
}

func TestDoExhaustionWrapsLastError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastCfg(3), 0, func(ctx context.Context) error {
		calls++
		return transientErr()
	})

	require.ErrorIs(t, err, llmerrors.ErrMaxRetriesExceeded)
	assert.Equal(t, 3, calls)
	var pe *llmerrors.ProviderError
	assert.ErrorAs(t, err, &pe, "last error stays in the chain")
}

func TestDoFailsFastOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastCfg(3), 0, func(ctx context.Context) error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDoPerAttemptTimeoutIsRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastCfg(3), 10*time.Millisecond, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls, "attempt timeout retries, parent stays live")
}

func TestDoParentCancellationDuringAttemptStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, fastCfg(5), 0, func(ctx context.Context) error {
		calls++
		cancel()
		return transientErr()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsRetryAfter(t *testing.T) {
	rlErr := &llmerrors.ProviderError{
		Provider:   "openai",
		StatusCode: 429,
		Message:    "slow down",
		Type:       llmerrors.ErrorTypeRateLimit,
		RetryAfter: 1,
	}

	start := time.Now()
	calls := 0
	err := Do(context.Background(), fastCfg(2), 0, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return rlErr
		}
		return nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), time.Second, "provider retry-after overrides backoff")
}

func TestBackoffLadder(t *testing.T) {
	cfg := configuration.RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.attempt, cfg), "attempt %d", tt.attempt)
	}
}

func TestBackoffCapsAtMaxInterval(t *testing.T) {
	cfg := configuration.RetryConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     300 * time.Millisecond,
		Multiplier:      2.0,
	}

	assert.Equal(t, 300*time.Millisecond, Backoff(4, cfg))
	assert.Equal(t, 300*time.Millisecond, Backoff(10, cfg))
}

func TestBackoffJitterStaysInRange(t *testing.T) {
	cfg := configuration.RetryConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		UseJitter:       true,
	}

	for i := 0; i < 100; i++ {
		d := Backoff(3, cfg)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 400*time.Millisecond)
	}
}

func TestDoRetriesSentinelErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastCfg(2), 0, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return llmerrors.ErrEmptyContent
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), configuration.RetryConfig{}, 0, func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
