package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-synth/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-synth/internal/llm/errors"
	"github.com/ahrav/go-synth/internal/llm/transport"
)

func testRequest() *transport.Request {
	return &transport.Request{
		Provider:    "openai",
		Model:       "test-model",
		Prompt:      "Name a city",
		Context:     map[string]any{"country": "FR", "_record": 3},
		MaxTokens:   128,
		Temperature: 0.7,
	}
}

func httpResponse(status int, body string, headers map[string]string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
	for k, v := range headers {
		resp.Header.Set(k, v)
	}
	return resp
}

func decodeBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestCoherencePreamble(t *testing.T) {
	tests := []struct {
		name    string
		context map[string]any
		empty   bool
		wants   []string
		rejects []string
	}{
		{name: "nil context", context: nil, empty: true},
		{name: "only internal keys", context: map[string]any{"_record": 1}, empty: true},
		{
			name:    "values rendered sorted, internal keys skipped",
			context: map[string]any{"country": "FR", "age": 30, "_record": 1},
			wants:   []string{"- age: 30", "- country: FR"},
			rejects: []string{"_record"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coherencePreamble(tt.context)
			if tt.empty {
				assert.Empty(t, got)
				return
			}
			for _, want := range tt.wants {
				assert.Contains(t, got, want)
			}
			for _, reject := range tt.rejects {
				assert.NotContains(t, got, reject)
			}
		})
	}
}

func TestOpenAIBuild(t *testing.T) {
	a := NewOpenAIAdapter(configuration.ProviderConfig{APIKey: "sk-test"})

	httpReq, err := a.Build(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "https://api.openai.com/v1/chat/completions", httpReq.URL.String())
	assert.Equal(t, "Bearer sk-test", httpReq.Header.Get("Authorization"))

	body := decodeBody(t, httpReq)
	assert.Equal(t, "test-model", body["model"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], "country: FR")
	user := messages[1].(map[string]any)
	assert.Equal(t, "Name a city", user["content"])
}

func TestOpenAIParseSuccess(t *testing.T) {
	a := NewOpenAIAdapter(configuration.ProviderConfig{})
	body := `{
		"id": "chatcmpl-1",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Paris"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
	}`

	resp, err := a.Parse(httpResponse(http.StatusOK, body, map[string]string{"x-request-id": "req-1"}))
	require.NoError(t, err)

	assert.Equal(t, "Paris", resp.Content)
	assert.Equal(t, transport.FinishStop, resp.FinishReason)
	assert.Equal(t, int64(12), resp.Usage.PromptTokens)
	assert.Equal(t, int64(3), resp.Usage.CompletionTokens)
	assert.Equal(t, []string{"req-1"}, resp.ProviderRequestIDs)
}

func TestOpenAIParseError(t *testing.T) {
	a := NewOpenAIAdapter(configuration.ProviderConfig{})
	body := `{"error": {"message": "Rate limit reached", "type": "rate_limit_error", "code": "rate_limit_exceeded"}}`

	_, err := a.Parse(httpResponse(http.StatusTooManyRequests, body, map[string]string{"Retry-After": "7"}))
	require.Error(t, err)

	var pe *llmerrors.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ProviderOpenAI, pe.Provider)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.Equal(t, llmerrors.ErrorTypeRateLimit, pe.Type)
	assert.Equal(t, 7, pe.RetryAfter)
	assert.True(t, pe.IsRetryable())
}

func TestAnthropicBuild(t *testing.T) {
	a := NewAnthropicAdapter(configuration.ProviderConfig{APIKey: "ak-test"})

	httpReq, err := a.Build(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "https://api.anthropic.com/v1/messages", httpReq.URL.String())
	assert.Equal(t, "ak-test", httpReq.Header.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, httpReq.Header.Get("anthropic-version"))

	body := decodeBody(t, httpReq)
	assert.Contains(t, body["system"], "country: FR")
	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
}

func TestAnthropicParseSuccess(t *testing.T) {
	a := NewAnthropicAdapter(configuration.ProviderConfig{})
	body := `{
		"id": "msg-1",
		"content": [{"type": "text", "text": "Paris"}],
		"stop_reason": "max_tokens",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`

	resp, err := a.Parse(httpResponse(http.StatusOK, body, nil))
	require.NoError(t, err)

	assert.Equal(t, "Paris", resp.Content)
	assert.Equal(t, transport.FinishLength, resp.FinishReason)
	assert.Equal(t, int64(15), resp.Usage.TotalTokens)
}

func TestAnthropicParseError(t *testing.T) {
	a := NewAnthropicAdapter(configuration.ProviderConfig{})
	body := `{"type": "error", "error": {"type": "overloaded_error", "message": "Overloaded"}}`

	_, err := a.Parse(httpResponse(http.StatusServiceUnavailable, body, nil))
	var pe *llmerrors.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, llmerrors.ErrorTypeProvider, pe.Type)
	assert.True(t, pe.IsRetryable())
}

func TestGoogleBuild(t *testing.T) {
	a := NewGoogleAdapter(configuration.ProviderConfig{APIKey: "gk-test"})

	httpReq, err := a.Build(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Contains(t, httpReq.URL.String(), "/models/test-model:generateContent")
	assert.Contains(t, httpReq.URL.String(), "key=gk-test")

	body := decodeBody(t, httpReq)
	assert.Contains(t, body, "systemInstruction")
	gc := body["generationConfig"].(map[string]any)
	assert.Equal(t, float64(128), gc["maxOutputTokens"])
}

func TestGoogleParseSuccess(t *testing.T) {
	a := NewGoogleAdapter(configuration.ProviderConfig{})
	body := `{
		"candidates": [{"content": {"parts": [{"text": "Paris"}]}, "finishReason": "STOP"}],
		"usageMetadata": {"promptTokenCount": 8, "candidatesTokenCount": 2, "totalTokenCount": 10}
	}`

	resp, err := a.Parse(httpResponse(http.StatusOK, body, nil))
	require.NoError(t, err)

	assert.Equal(t, "Paris", resp.Content)
	assert.Equal(t, transport.FinishStop, resp.FinishReason)
	assert.Equal(t, int64(10), resp.Usage.TotalTokens)
}

func TestGoogleParseSafetyFinish(t *testing.T) {
	a := NewGoogleAdapter(configuration.ProviderConfig{})
	body := `{"candidates": [{"content": {"parts": [{"text": ""}]}, "finishReason": "SAFETY"}]}`

	resp, err := a.Parse(httpResponse(http.StatusOK, body, nil))
	require.NoError(t, err)
	assert.Equal(t, transport.FinishContentFilter, resp.FinishReason)
}

func TestGoogleParseError(t *testing.T) {
	a := NewGoogleAdapter(configuration.ProviderConfig{})
	body := `{"error": {"code": 429, "message": "Resource exhausted", "status": "RESOURCE_EXHAUSTED"}}`

	_, err := a.Parse(httpResponse(http.StatusTooManyRequests, body, nil))
	var pe *llmerrors.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, llmerrors.ErrorTypeRateLimit, pe.Type)
}

func TestNewRouter(t *testing.T) {
	t.Run("routes configured providers", func(t *testing.T) {
		r, err := NewRouter(map[string]configuration.ProviderConfig{
			ProviderOpenAI:    {},
			ProviderAnthropic: {},
			ProviderGoogle:    {},
		})
		require.NoError(t, err)

		for _, name := range []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle} {
			adapter, err := r.Pick(name, "m")
			require.NoError(t, err)
			assert.Equal(t, name, adapter.Name())
		}
	})

	t.Run("unknown provider fails eagerly", func(t *testing.T) {
		_, err := NewRouter(map[string]configuration.ProviderConfig{"mystery": {}})
		require.ErrorIs(t, err, llmerrors.ErrUnknownProvider)
	})

	t.Run("pick of unconfigured provider fails", func(t *testing.T) {
		r, err := NewRouter(map[string]configuration.ProviderConfig{ProviderOpenAI: {}})
		require.NoError(t, err)

		_, err = r.Pick(ProviderGoogle, "m")
		require.ErrorIs(t, err, llmerrors.ErrUnknownProvider)
	})
}

func TestClassifyErrorType(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   llmerrors.ErrorType
	}{
		{"code beats status", 500, "rate_limit_exceeded", llmerrors.ErrorTypeRateLimit},
		{"timeout code", 200, "request_timeout", llmerrors.ErrorTypeTimeout},
		{"auth code", 400, "unauthorized", llmerrors.ErrorTypeAuth},
		{"quota code", 400, "quota_exceeded", llmerrors.ErrorTypeQuota},
		{"safety code", 200, "safety_block", llmerrors.ErrorTypeContent},
		{"429 status", 429, "", llmerrors.ErrorTypeRateLimit},
		{"401 status", 401, "", llmerrors.ErrorTypeAuth},
		{"403 status", 403, "", llmerrors.ErrorTypePermission},
		{"400 status", 400, "", llmerrors.ErrorTypeValidation},
		{"503 status", 503, "", llmerrors.ErrorTypeProvider},
		{"599 status", 599, "", llmerrors.ErrorTypeProvider},
		{"418 status", 418, "", llmerrors.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyErrorType(tt.status, tt.code))
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	h := http.Header{}
	assert.Zero(t, retryAfterSeconds(h))

	h.Set("Retry-After", "30")
	assert.Equal(t, 30, retryAfterSeconds(h))

	h.Set("Retry-After", "Wed, 21 Oct 2026 07:28:00 GMT")
	assert.Zero(t, retryAfterSeconds(h))

	h.Set("Retry-After", "-5")
	assert.Zero(t, retryAfterSeconds(h))
}
