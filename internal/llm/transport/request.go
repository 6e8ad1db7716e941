// Package transport defines the request pipeline for generation backends:
// normalized request/response types, the Handler abstraction, composable
// middleware, and the core HTTP handler that talks to provider APIs.
package transport

import (
	"net/http"
	"time"
)

// Request is the normalized generation request routed to a provider adapter.
type Request struct {
	// Provider is the canonical provider identifier ("openai", "anthropic", "google").
	Provider string

	// Model is the provider-specific model identifier.
	Model string

	// Prompt describes the desired value in free text.
	Prompt string

	// Context carries already-resolved field values folded in for relational
	// consistency. Adapters render it as a system-level preamble.
	Context map[string]any

	// MaxTokens caps the completion length.
	MaxTokens int

	// Temperature controls sampling randomness.
	Temperature float64

	// Timeout bounds this request; zero means the HTTP client default.
	Timeout time.Duration
}

// NormalizedUsage reports token consumption and latency in a
// provider-agnostic shape.
type NormalizedUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	LatencyMs        int64 `json:"latency_ms"`
}

// FinishReason indicates why the provider stopped generating.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
)

// Response is the normalized result of one generation call.
type Response struct {
	Content            string
	FinishReason       FinishReason
	Usage              NormalizedUsage
	ProviderRequestIDs []string
	Headers            http.Header
	RawBody            []byte
}
