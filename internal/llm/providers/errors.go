package providers

import (
	"net/http"
	"strconv"
	"strings"

	llmerrors "github.com/ahrav/go-synth/internal/llm/errors"
)

// serverErrorStatusThreshold is the HTTP status code floor for server errors.
const serverErrorStatusThreshold = 500

// classifyErrorType determines ErrorType from HTTP status and provider error
// codes, mapping failures into retryable and non-retryable categories.
func classifyErrorType(statusCode int, errorCode string) llmerrors.ErrorType {
	// Check the provider code first for specific classifications.
	lowerCode := strings.ToLower(errorCode)
	switch {
	case strings.Contains(lowerCode, "rate") || strings.Contains(lowerCode, "limit"):
		return llmerrors.ErrorTypeRateLimit
	case strings.Contains(lowerCode, "timeout"):
		return llmerrors.ErrorTypeTimeout
	case strings.Contains(lowerCode, "auth") || strings.Contains(lowerCode, "unauthorized"):
		return llmerrors.ErrorTypeAuth
	case strings.Contains(lowerCode, "permission") || strings.Contains(lowerCode, "forbidden"):
		return llmerrors.ErrorTypePermission
	case strings.Contains(lowerCode, "quota"):
		return llmerrors.ErrorTypeQuota
	case strings.Contains(lowerCode, "safety") || strings.Contains(lowerCode, "content_filter"):
		return llmerrors.ErrorTypeContent
	}

	// Fall back to status code classification.
	switch statusCode {
	case http.StatusTooManyRequests:
		return llmerrors.ErrorTypeRateLimit
	case http.StatusUnauthorized:
		return llmerrors.ErrorTypeAuth
	case http.StatusForbidden:
		return llmerrors.ErrorTypePermission
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return llmerrors.ErrorTypeTimeout
	case http.StatusBadRequest:
		return llmerrors.ErrorTypeValidation
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return llmerrors.ErrorTypeProvider
	default:
		if statusCode >= serverErrorStatusThreshold {
			return llmerrors.ErrorTypeProvider
		}
		return llmerrors.ErrorTypeUnknown
	}
}

// retryAfterSeconds parses a numeric Retry-After header value, returning 0
// when absent or non-numeric.
func retryAfterSeconds(headers http.Header) int {
	raw := headers.Get("Retry-After")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
