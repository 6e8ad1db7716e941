// Package configuration holds the configuration surface for the backend
// client stack: provider credentials and endpoints, retry policy, value-cache
// caps, batch coalescing, and observability options.
package configuration

import (
	"net/http"
	"time"
)

// Config holds the full configuration for the generation client.
type Config struct {
	// HTTP client configuration.
	HTTPTimeout time.Duration `json:"http_timeout" yaml:"http_timeout"`
	HTTPClient  *http.Client  `json:"-" yaml:"-"`

	// Providers maps canonical provider names to their configuration.
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`

	// Retry controls backend retry behavior.
	Retry RetryConfig `json:"retry" yaml:"retry"`

	// Cache controls the value cache caps.
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// Batch controls request coalescing.
	Batch BatchConfig `json:"batch" yaml:"batch"`

	// Generation controls completion parameters.
	Generation GenerationConfig `json:"generation" yaml:"generation"`

	// Observability controls logging behavior.
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// ProviderConfig holds provider-specific configuration and authentication.
type ProviderConfig struct {
	Endpoint  string            `json:"endpoint" yaml:"endpoint"`
	APIKey    string            `json:"-" yaml:"-"` // Sensitive, not serialized
	APIKeyEnv string            `json:"api_key_env" yaml:"api_key_env"`
	Timeout   time.Duration     `json:"timeout" yaml:"timeout"`
	Headers   map[string]string `json:"headers" yaml:"headers"`
}

// RetryConfig controls retry behavior for failed generation calls.
// Backoff is exponential: InitialInterval doubled per attempt (Multiplier),
// capped at MaxInterval, with optional full jitter.
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts" yaml:"max_attempts"`
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval" yaml:"max_interval"`
	Multiplier      float64       `json:"multiplier" yaml:"multiplier"`
	UseJitter       bool          `json:"use_jitter" yaml:"use_jitter"`
}

// CacheConfig controls the value cache for externally-generated field values.
type CacheConfig struct {
	Enabled         bool `json:"enabled" yaml:"enabled"`
	MaxKeys         int  `json:"max_keys" yaml:"max_keys"`
	MaxValuesPerKey int  `json:"max_values_per_key" yaml:"max_values_per_key"`
}

// BatchConfig controls coalescing of concurrent generation requests.
type BatchConfig struct {
	Enabled       bool          `json:"enabled" yaml:"enabled"`
	Size          int           `json:"size" yaml:"size"`
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval"`
}

// GenerationConfig controls completion parameters for generated fields.
type GenerationConfig struct {
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// ObservabilityConfig controls structured logging behavior.
type ObservabilityConfig struct {
	LogLevel      string `json:"log_level" yaml:"log_level"`
	RedactPrompts bool   `json:"redact_prompts" yaml:"redact_prompts"`
}
