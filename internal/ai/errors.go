// errors.go - Classification of Gemini API failures

package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bosocmputer/display_audit_gemini/internal/common"
	"google.golang.org/api/googleapi"
)

// APIError is a categorized Gemini API failure. Every APIError unwraps to
// common.ErrAIUnavailable: the pipeline performs no internal retry, so the
// category is diagnostic, not a retry hint.
type APIError struct {
	OriginalError error
	Category      string
	StatusCode    int
	Message       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s (status: %d)", e.Category, e.Message, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return common.ErrAIUnavailable
}

// classifyError analyzes an error from the Gemini SDK and wraps it with a
// category for logging and the user-facing response.
func classifyError(err error) *APIError {
	if err == nil {
		return nil
	}

	apiErr := &APIError{
		OriginalError: err,
		Category:      "unknown",
		Message:       err.Error(),
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		apiErr.StatusCode = gerr.Code

		switch gerr.Code {
		case 400:
			apiErr.Category = "bad_request"
			apiErr.Message = "Invalid request format or parameters"
		case 401:
			apiErr.Category = "unauthorized"
			apiErr.Message = "Invalid API key or authentication failed"
		case 403:
			apiErr.Category = "forbidden"
			apiErr.Message = "API key lacks required permissions"
		case 404:
			apiErr.Category = "not_found"
			apiErr.Message = "Model not found or invalid endpoint"
		case 413:
			apiErr.Category = "payload_too_large"
			apiErr.Message = "Request size exceeds limit (reduce image size)"
		case 429:
			apiErr.Category = "rate_limit"
			apiErr.Message = "Rate limit exceeded - too many requests"
		case 500, 502, 503, 504:
			apiErr.Category = "server_error"
			apiErr.Message = fmt.Sprintf("Gemini server error (%d)", gerr.Code)
		default:
			apiErr.Category = "unknown_api_error"
			apiErr.Message = fmt.Sprintf("API error: %s", gerr.Message)
		}
		return apiErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		apiErr.Category = "timeout"
		apiErr.Message = "Request timeout - AI call took too long"
		return apiErr
	}

	if errors.Is(err, context.Canceled) {
		apiErr.Category = "canceled"
		apiErr.Message = "Request was canceled"
		return apiErr
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "resource exhausted"):
		apiErr.Category = "quota_exceeded"
		apiErr.Message = "API quota exceeded"
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline"):
		apiErr.Category = "timeout"
		apiErr.Message = "Request timeout"
	case strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network"):
		apiErr.Category = "network_error"
		apiErr.Message = "Network connection error"
	}

	return apiErr
}
