package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/ahrav/go-synth/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-synth/internal/llm/errors"
	"github.com/ahrav/go-synth/internal/llm/providers"
	"github.com/ahrav/go-synth/internal/llm/transport"
)

// Client is the HTTP-backed Backend implementation. It pins one provider and
// model and routes every call through the transport middleware chain.
type Client struct {
	handler  transport.Handler
	provider string
	model    string
	cfg      *configuration.Config
}

// NewClient builds a client for the given provider and model. Configuration
// problems — unknown provider name, missing model, missing API key — fail
// here, before any record loop starts. A nil cfg uses DefaultConfig.
func NewClient(cfg *configuration.Config, provider, model string) (*Client, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	if model == "" {
		return nil, fmt.Errorf("%w: provider %s", llmerrors.ErrMissingModel, provider)
	}

	pcfg, ok := cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, provider)
	}
	if pcfg.APIKey == "" && pcfg.APIKeyEnv != "" {
		pcfg.APIKey = os.Getenv(pcfg.APIKeyEnv)
		cfg.Providers[provider] = pcfg
	}
	if pcfg.APIKey == "" {
		return nil, fmt.Errorf("%w: provider %s (set %s)", llmerrors.ErrMissingAPIKey, provider, pcfg.APIKeyEnv)
	}

	router, err := providers.NewRouter(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("configure providers: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = configuration.DefaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	handler := transport.Chain(
		transport.NewHTTPHandler(httpClient, router),
		NewLoggingMiddleware(cfg.Observability, nil),
	)

	return &Client{
		handler:  handler,
		provider: provider,
		model:    model,
		cfg:      cfg,
	}, nil
}

// Name returns the provider identifier. Used in cache keys.
func (c *Client) Name() string { return c.provider }

// Model returns the pinned model identifier.
func (c *Client) Model() string { return c.model }

// Generate implements Backend by issuing one normalized request through the
// middleware chain and returning the trimmed completion text.
func (c *Client) Generate(ctx context.Context, prompt string, context map[string]any) (string, error) {
	req := &transport.Request{
		Provider:    c.provider,
		Model:       c.model,
		Prompt:      prompt,
		Context:     context,
		MaxTokens:   c.cfg.Generation.MaxTokens,
		Temperature: c.cfg.Generation.Temperature,
		Timeout:     c.cfg.Providers[c.provider].Timeout,
	}

	resp, err := c.handler.Handle(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
