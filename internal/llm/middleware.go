package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-synth/internal/llm/configuration"
	"github.com/ahrav/go-synth/internal/llm/transport"
)

// loggingMiddleware provides structured logging for the generation request
// lifecycle: start, completion with latency and token usage, and failures.
type loggingMiddleware struct {
	logger        *slog.Logger
	redactPrompts bool
}

// NewLoggingMiddleware creates the observability middleware for the request
// pipeline. A nil logger falls back to slog.Default.
func NewLoggingMiddleware(cfg configuration.ObservabilityConfig, logger *slog.Logger) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	lm := &loggingMiddleware{
		logger:        logger.With("component", "llm"),
		redactPrompts: cfg.RedactPrompts,
	}
	return lm.middleware
}

func (m *loggingMiddleware) middleware(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		requestID := uuid.New().String()

		prompt := req.Prompt
		if m.redactPrompts {
			prompt = "[redacted]"
		}
		m.logger.Debug("generation request",
			"request_id", requestID,
			"provider", req.Provider,
			"model", req.Model,
			"prompt", prompt,
			"context_fields", len(req.Context))

		start := time.Now()
		resp, err := next.Handle(ctx, req)
		latency := time.Since(start)

		if err != nil {
			m.logger.Warn("generation request failed",
				"request_id", requestID,
				"provider", req.Provider,
				"model", req.Model,
				"latency", latency,
				"error", err)
			return resp, err
		}

		m.logger.Debug("generation request complete",
			"request_id", requestID,
			"provider", req.Provider,
			"model", req.Model,
			"latency", latency,
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens)
		return resp, nil
	})
}
