package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapErrorPreservesAIError(t *testing.T) {
	orig := NewError(ErrRateLimited, "slow down", WithStatus(429), WithRetryAfter(7))
	wrapped := fmt.Errorf("openai: send: %w", orig)

	got := WrapError(wrapped, ErrInternal)
	if got.Code != ErrRateLimited {
		t.Fatalf("expected original code to survive, got %s", got.Code)
	}
	if got.RetryAfter != 7 {
		t.Errorf("expected RetryAfter 7, got %d", got.RetryAfter)
	}
}

func TestWrapErrorNil(t *testing.T) {
	if WrapError(nil, ErrInternal) != nil {
		t.Fatal("WrapError(nil) should return nil")
	}
}

func TestNewErrorOptions(t *testing.T) {
	inner := errors.New("boom")
	err := NewError(ErrServerError, "openai: upstream error",
		WithProvider("openai"),
		WithStatus(503),
		WithRetryable(true),
		WithWrapped(inner),
		WithDetails(map[string]any{"request_id": "abc"}),
	)

	if err.Provider != "openai" {
		t.Errorf("provider = %q", err.Provider)
	}
	if err.Status != 503 {
		t.Errorf("status = %d", err.Status)
	}
	if !err.Retryable {
		t.Error("expected retryable")
	}
	if !errors.Is(err, inner) {
		t.Error("expected wrapped error to unwrap")
	}
	if err.Details["request_id"] != "abc" {
		t.Error("details not attached")
	}
}

func TestFromHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorCode
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusRequestTimeout, ErrTimeout},
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusNotFound, ErrBadRequest},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusBadGateway, ErrServerError},
	}
	for _, tc := range cases {
		if got := FromHTTPStatus(tc.status); got != tc.want {
			t.Errorf("FromHTTPStatus(%d) = %s, want %s", tc.status, got, tc.want)
		}
	}
}

func TestFromTransport(t *testing.T) {
	if got := FromTransport(context.DeadlineExceeded); got.Code != ErrTimeout {
		t.Errorf("deadline should classify as timeout, got %s", got.Code)
	}
	if got := FromTransport(context.Canceled); got.Code != ErrCanceled {
		t.Errorf("cancel should classify as canceled, got %s", got.Code)
	}
	if got := FromTransport(errors.New("connection refused")); got.Code != ErrNetwork {
		t.Errorf("generic transport error should classify as network, got %s", got.Code)
	}
	if FromTransport(nil) != nil {
		t.Error("FromTransport(nil) should return nil")
	}
}

func TestPredicates(t *testing.T) {
	missing := NewError(ErrCredentialMissing, "no key")
	if !IsCredentialMissing(missing) {
		t.Error("IsCredentialMissing should match")
	}
	if IsCredentialMissing(errors.New("no key")) {
		t.Error("IsCredentialMissing should not match plain errors")
	}

	wrapped := fmt.Errorf("gemini: %w", NewError(ErrTimeout, "deadline"))
	if !IsTimeout(wrapped) {
		t.Error("IsTimeout should see through wrapping")
	}

	if !IsNotConnected(NewError(ErrNotConnected, "send before connect")) {
		t.Error("IsNotConnected should match")
	}
}

func TestIsProviderFailure(t *testing.T) {
	sendPhase := []ErrorCode{
		ErrRateLimited, ErrUnauthorized, ErrBadRequest, ErrServerError,
		ErrNetwork, ErrMalformedResponse, ErrTimeout, ErrInternal,
	}
	for _, code := range sendPhase {
		if !IsProviderFailure(NewError(code, "x")) {
			t.Errorf("code %s should count as provider failure", code)
		}
	}

	connectPhase := []ErrorCode{ErrCredentialMissing, ErrConnectionFailed, ErrNotConnected, ErrCanceled}
	for _, code := range connectPhase {
		if IsProviderFailure(NewError(code, "x")) {
			t.Errorf("code %s should not count as provider failure", code)
		}
	}

	if IsProviderFailure(errors.New("plain")) {
		t.Error("plain errors are not provider failures")
	}
}

func TestGetRetryAfter(t *testing.T) {
	err := NewError(ErrRateLimited, "slow down", WithRetryAfter(30))
	if got := GetRetryAfter(fmt.Errorf("wrap: %w", err)); got != 30 {
		t.Errorf("GetRetryAfter = %d, want 30", got)
	}
	if got := GetRetryAfter(errors.New("plain")); got != 0 {
		t.Errorf("GetRetryAfter on plain error = %d, want 0", got)
	}
}
