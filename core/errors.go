package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode categorizes connector errors.
type ErrorCode string

const (
	// Connect-phase codes.
	ErrCredentialMissing ErrorCode = "credential_missing"
	ErrConnectionFailed  ErrorCode = "connection_failed"
	ErrNotConnected      ErrorCode = "not_connected"

	// Send-phase codes.
	ErrRateLimited       ErrorCode = "rate_limited"
	ErrUnauthorized      ErrorCode = "unauthorized"
	ErrBadRequest        ErrorCode = "bad_request"
	ErrServerError       ErrorCode = "server_error"
	ErrNetwork           ErrorCode = "network"
	ErrMalformedResponse ErrorCode = "malformed_response"
	ErrTimeout           ErrorCode = "timeout"
	ErrCanceled          ErrorCode = "canceled"
	ErrInternal          ErrorCode = "internal"
)

// AIError provides rich context for consumers of connector errors.
type AIError struct {
	Code       ErrorCode
	Message    string
	Provider   string
	Status     int
	Retryable  bool
	RetryAfter int64
	Details    map[string]any
	wrapped    error
}

func (e *AIError) Error() string {
	if e == nil {
		return ""
	}
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.wrapped)
	}
	return e.Message
}

func (e *AIError) Unwrap() error { return e.wrapped }

// WrapError creates a new AIError with the provided code. If err already
// carries an AIError it is returned unchanged.
func WrapError(err error, code ErrorCode) *AIError {
	if err == nil {
		return nil
	}
	var ai *AIError
	if errors.As(err, &ai) {
		return ai
	}
	return &AIError{Code: code, Message: err.Error(), wrapped: err}
}

// NewError builds an AIError explicitly.
func NewError(code ErrorCode, message string, opts ...ErrorOption) *AIError {
	e := &AIError{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ErrorOption mutates an AIError during construction.
type ErrorOption func(*AIError)

// WithProvider tags the error with its originating provider.
func WithProvider(provider string) ErrorOption {
	return func(e *AIError) { e.Provider = provider }
}

// WithStatus sets the HTTP status code.
func WithStatus(status int) ErrorOption {
	return func(e *AIError) { e.Status = status }
}

// WithRetryable marks whether retry is recommended.
func WithRetryable(retryable bool) ErrorOption {
	return func(e *AIError) { e.Retryable = retryable }
}

// WithRetryAfter sets retry-after seconds.
func WithRetryAfter(seconds int64) ErrorOption {
	return func(e *AIError) { e.RetryAfter = seconds }
}

// WithDetails attaches structured context.
func WithDetails(details map[string]any) ErrorOption {
	return func(e *AIError) { e.Details = details }
}

// WithWrapped attaches an underlying error.
func WithWrapped(err error) ErrorOption {
	return func(e *AIError) { e.wrapped = err }
}

// FromHTTPStatus maps a provider response status to an error code.
func FromHTTPStatus(status int) ErrorCode {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusRequestTimeout:
		return ErrTimeout
	case status >= 400 && status < 500:
		return ErrBadRequest
	case status >= 500:
		return ErrServerError
	default:
		return ErrInternal
	}
}

// FromTransport classifies a transport-level error. Deadline expiry maps
// to the timeout code so callers treat it like any other transport failure.
func FromTransport(err error) *AIError {
	if err == nil {
		return nil
	}
	var ai *AIError
	if errors.As(err, &ai) {
		return ai
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &AIError{Code: ErrTimeout, Message: "request deadline exceeded", Retryable: true, wrapped: err}
	case errors.Is(err, context.Canceled):
		return &AIError{Code: ErrCanceled, Message: "request canceled", wrapped: err}
	default:
		return &AIError{Code: ErrNetwork, Message: "transport failure", Retryable: true, wrapped: err}
	}
}

func classify(code ErrorCode) func(error) bool {
	return func(err error) bool {
		if err == nil {
			return false
		}
		var ai *AIError
		if errors.As(err, &ai) {
			return ai.Code == code
		}
		return false
	}
}

// Helper predicates for common error handling patterns.
var (
	IsCredentialMissing = classify(ErrCredentialMissing)
	IsConnectionFailed  = classify(ErrConnectionFailed)
	IsNotConnected      = classify(ErrNotConnected)
	IsRateLimited       = classify(ErrRateLimited)
	IsUnauthorized      = classify(ErrUnauthorized)
	IsTimeout           = classify(ErrTimeout)
	IsCanceled          = classify(ErrCanceled)
)

// IsProviderFailure reports whether err is a send-phase failure: the
// request reached (or tried to reach) the provider and did not complete.
func IsProviderFailure(err error) bool {
	if err == nil {
		return false
	}
	var ai *AIError
	if !errors.As(err, &ai) {
		return false
	}
	switch ai.Code {
	case ErrRateLimited, ErrUnauthorized, ErrBadRequest, ErrServerError,
		ErrNetwork, ErrMalformedResponse, ErrTimeout, ErrInternal:
		return true
	default:
		return false
	}
}

// GetRetryAfter extracts the retry-after hint in seconds, or 0.
func GetRetryAfter(err error) int64 {
	var ai *AIError
	if errors.As(err, &ai) {
		return ai.RetryAfter
	}
	return 0
}
