// Package llm exposes the backend surface consumed by the generation engine:
// the Backend interface, the HTTP client that implements it over the
// provider adapters, and the logging middleware for the request pipeline.
package llm

import "context"

// Backend supplies values for generated fields. The engine is
// backend-agnostic: anything satisfying this interface can be plugged in,
// including test fakes.
type Backend interface {
	// Name returns the canonical backend identifier used in cache keys.
	Name() string

	// Generate produces text for the prompt. Context carries already-resolved
	// field values folded in for relational consistency.
	Generate(ctx context.Context, prompt string, context map[string]any) (string, error)
}

// BatchBackend is optionally implemented by backends with a native batch
// call. Results are returned in input order with the same length as the
// input; the coalescer falls back to sequential Generate calls when the
// batch call fails or the interface is absent.
type BatchBackend interface {
	Backend

	GenerateBatch(ctx context.Context, prompts []string, context map[string]any) ([]string, error)
}
