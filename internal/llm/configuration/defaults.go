package configuration

import (
	"os"
	"time"
)

// HTTP constants.
const (
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry constants. The initial interval and multiplier give the
// 100ms / 200ms / 400ms backoff ladder.
const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 100 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
	DefaultMultiplier      = 2.0
)

// Cache constants.
const (
	DefaultCacheMaxKeys         = 500
	DefaultCacheMaxValuesPerKey = 10
)

// Batch constants.
const (
	DefaultBatchSize     = 10
	DefaultFlushInterval = 100 * time.Millisecond
)

// Generation constants.
const (
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.9
)

// Provider API key environment variables.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGoogleKey    = "GOOGLE_API_KEY"
)

// DefaultConfig returns a ready-to-use configuration with all three
// providers declared, resolving API keys from the conventional environment
// variables. Providers without a key are still listed; client construction
// validates the key for the provider actually selected.
func DefaultConfig() *Config {
	return &Config{
		HTTPTimeout: DefaultHTTPTimeout,
		Providers: map[string]ProviderConfig{
			"openai":    {APIKey: os.Getenv(EnvOpenAIKey), APIKeyEnv: EnvOpenAIKey},
			"anthropic": {APIKey: os.Getenv(EnvAnthropicKey), APIKeyEnv: EnvAnthropicKey},
			"google":    {APIKey: os.Getenv(EnvGoogleKey), APIKeyEnv: EnvGoogleKey},
		},
		Retry: RetryConfig{
			MaxAttempts:     DefaultMaxAttempts,
			InitialInterval: DefaultInitialInterval,
			MaxInterval:     DefaultMaxInterval,
			Multiplier:      DefaultMultiplier,
		},
		Cache: CacheConfig{
			Enabled:         true,
			MaxKeys:         DefaultCacheMaxKeys,
			MaxValuesPerKey: DefaultCacheMaxValuesPerKey,
		},
		Batch: BatchConfig{
			Size:          DefaultBatchSize,
			FlushInterval: DefaultFlushInterval,
		},
		Generation: GenerationConfig{
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
	}
}
