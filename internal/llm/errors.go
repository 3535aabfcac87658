package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
)

// ErrModelUnavailable is matched by every error returned from a provider call.
var ErrModelUnavailable = errors.New("model unavailable")

// ErrorType classifies a provider failure.
type ErrorType string

const (
	ErrorTypeFatal           ErrorType = "fatal"
	ErrorTypeTransient       ErrorType = "transient"
	ErrorTypeAPILimit        ErrorType = "api_limit"
	ErrorTypeContextOverflow ErrorType = "context_overflow"
)

// ModelError is a classified provider failure.
type ModelError struct {
	Type       ErrorType
	Retryable  bool
	StatusCode int
	Message    string
	Err        error
}

func (e *ModelError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("model unavailable (%s, status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model unavailable (%s): %s", e.Type, e.Message)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Is makes every ModelError match ErrModelUnavailable.
func (e *ModelError) Is(target error) bool { return target == ErrModelUnavailable }

// classifyError maps an SDK or transport error to a *ModelError.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var me *ModelError
	if errors.As(err, &me) {
		return me
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return classifyByStatusCode(oaiErr.StatusCode, err)
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return classifyByStatusCode(antErr.StatusCode, err)
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "maximum context length"),
		strings.Contains(lower, "context_length_exceeded"),
		strings.Contains(lower, "prompt is too long"):
		return &ModelError{Type: ErrorTypeContextOverflow, Message: msg, Err: err}
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "timeout"):
		return &ModelError{Type: ErrorTypeTransient, Retryable: true, Message: msg, Err: err}
	default:
		return &ModelError{Type: ErrorTypeFatal, Message: msg, Err: err}
	}
}

// classifyByStatusCode maps an HTTP status to a *ModelError.
func classifyByStatusCode(statusCode int, err error) *ModelError {
	me := &ModelError{StatusCode: statusCode, Message: err.Error(), Err: err}
	switch {
	case statusCode == http.StatusTooManyRequests:
		me.Type, me.Retryable = ErrorTypeAPILimit, true
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusConflict, statusCode >= 500:
		me.Type, me.Retryable = ErrorTypeTransient, true
	default:
		me.Type = ErrorTypeFatal
	}
	return me
}
