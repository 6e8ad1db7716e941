package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-synth/internal/cache"
	"github.com/ahrav/go-synth/internal/coalesce"
	"github.com/ahrav/go-synth/internal/domain"
	"github.com/ahrav/go-synth/internal/llm"
	"github.com/ahrav/go-synth/internal/llm/configuration"
)

// Quick-path defaults: small fast models per provider and a conservative
// batch size.
const quickBatchSize = 5

var quickModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-3-5-haiku-latest",
	"google":    "gemini-2.0-flash",
}

// sharedCache is the process-wide value cache used by the convenience entry
// points, so repeated runs in one process benefit from each other's outputs.
var sharedCache = sync.OnceValue(func() *cache.Cache {
	c, err := cache.New(configuration.DefaultCacheMaxKeys, configuration.DefaultCacheMaxValuesPerKey)
	if err != nil {
		panic(err) // positive caps cannot fail
	}
	return c
})

// Generate is the convenience entry point: it builds an HTTP client for
// opts.Provider from the default configuration (API keys from environment),
// wires the shared cache and, when batching is requested, a coalescer sized
// for the run, and delegates to Engine.Generate.
func Generate(ctx context.Context, schema *domain.Schema, opts Options) (*Result, error) {
	cfg := configuration.DefaultConfig()
	if opts.Provider.Endpoint != "" {
		pcfg := cfg.Providers[opts.Provider.Name]
		pcfg.Endpoint = opts.Provider.Endpoint
		cfg.Providers[opts.Provider.Name] = pcfg
	}

	client, err := llm.NewClient(cfg, opts.Provider.Name, opts.Provider.Model)
	if err != nil {
		return nil, fmt.Errorf("configure backend: %w", err)
	}

	engineOpts := []Option{WithCache(sharedCache()), WithRetryConfig(cfg.Retry)}
	if opts.BatchSize > 0 {
		co := coalesce.New(opts.BatchSize, cfg.Batch.FlushInterval, nil)
		engineOpts = append(engineOpts, WithCoalescer(co))
	}

	return New(client, engineOpts...).Generate(ctx, schema, opts)
}

// Quick generates count records with opinionated defaults: the provider's
// small fast model, batching at a conservative size, caching on, and a 30s
// per-attempt timeout.
func Quick(ctx context.Context, schema *domain.Schema, provider string, count int) (*Result, error) {
	model, ok := quickModels[provider]
	if !ok {
		return nil, fmt.Errorf("no quick model for provider %q", provider)
	}
	return Generate(ctx, schema, Options{
		Count:     count,
		Provider:  ProviderSpec{Name: provider, Model: model},
		BatchSize: quickBatchSize,
		Advanced:  Advanced{Timeout: 30 * time.Second},
	})
}
