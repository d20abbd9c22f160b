package meli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{name: "client error should not retry", errorClass: ErrorClassClient, expected: false},
		{name: "blocked should not retry", errorClass: ErrorClassBlocked, expected: false},
		{name: "server error should retry", errorClass: ErrorClassServer, expected: true},
		{name: "rate limit should retry", errorClass: ErrorClassRateLimit, expected: true},
		{name: "network error should retry", errorClass: ErrorClassNetwork, expected: true},
		{name: "empty error class should not retry", errorClass: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := shouldRetry(tt.errorClass); result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		headers  map[string]string
		body     string
		expected ErrorClass
	}{
		{name: "429 is rate limit", status: 429, expected: ErrorClassRateLimit},
		{name: "404 is client", status: 404, body: `{"message":"not found"}`, expected: ErrorClassClient},
		{name: "401 is client", status: 401, expected: ErrorClassClient},
		{name: "plain 403 is client", status: 403, body: `{"message":"forbidden"}`, expected: ErrorClassClient},
		{name: "500 is server", status: 500, expected: ErrorClassServer},
		{name: "503 is server", status: 503, expected: ErrorClassServer},
		{
			name:     "403 with cloudfront x-cache",
			status:   403,
			headers:  map[string]string{"X-Cache": "Error from cloudfront"},
			expected: ErrorClassBlocked,
		},
		{
			name:     "403 served by CloudFront",
			status:   403,
			headers:  map[string]string{"Server": "CloudFront"},
			expected: ErrorClassBlocked,
		},
		{
			name:     "403 html page mentioning cloudfront",
			status:   403,
			headers:  map[string]string{"Content-Type": "text/html"},
			body:     "<html><body>Generated by cloudfront (CloudFront)</body></html>",
			expected: ErrorClassBlocked,
		},
		{
			name:     "cloudfront headers on a 500 are a server error",
			status:   500,
			headers:  map[string]string{"X-Cache": "Error from cloudfront"},
			expected: ErrorClassServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			for k, v := range tt.headers {
				resp.Header.Set(k, v)
			}
			if got := classifyResponse(resp, []byte(tt.body)); got != tt.expected {
				t.Errorf("classifyResponse() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestClassOf(t *testing.T) {
	apiErr := &APIError{StatusCode: 500, Class: ErrorClassServer}

	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "api error", err: apiErr, expected: ErrorClassServer},
		{name: "wrapped api error", err: fmt.Errorf("fetch: %w", apiErr), expected: ErrorClassServer},
		{name: "plain error is network", err: errors.New("connection refused"), expected: ErrorClassNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassOf(tt.err); got != tt.expected {
				t.Errorf("ClassOf() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				StatusCode: 403,
				Class:      ErrorClassBlocked,
				Message:    "403 Forbidden",
				Err:        ErrBlocked,
			},
			expected: "meli blocked error (status 403): 403 Forbidden: upstream blocked",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				StatusCode: 404,
				Class:      ErrorClassClient,
				Message:    "not found",
			},
			expected: "meli client error (status 404): not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewAPIError(t *testing.T) {
	unauthorized := &http.Response{StatusCode: 401, Status: "401 Unauthorized", Header: http.Header{}}
	err := newAPIError(unauthorized, []byte(`{"message":"invalid access token","error":"not_found"}`), ErrorClassClient)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("401 should unwrap to ErrUnauthorized, got %v", err)
	}
	if err.Message != "invalid access token" {
		t.Errorf("Message = %q, want upstream message", err.Message)
	}

	blocked := &http.Response{StatusCode: 403, Status: "403 Forbidden", Header: http.Header{}}
	err = newAPIError(blocked, []byte("<html></html>"), ErrorClassBlocked)
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("blocked should unwrap to ErrBlocked, got %v", err)
	}
	if err.Message != "403 Forbidden" {
		t.Errorf("Message = %q, want status fallback", err.Message)
	}
}

// timeoutError is a net.Error that timed out.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsTimeout(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "deadline during retry",
			err:      fmt.Errorf("%w: %w", ErrContextCancelled, context.DeadlineExceeded),
			expected: true,
		},
		{
			name:     "attempts timed out",
			err:      fmt.Errorf("%w after 3 attempts: %w", ErrRetryExhausted, &net.OpError{Op: "read", Err: timeoutError{}}),
			expected: true,
		},
		{
			name:     "caller cancelled",
			err:      fmt.Errorf("%w: %w", ErrContextCancelled, context.Canceled),
			expected: false,
		},
		{
			name:     "attempts refused",
			err:      fmt.Errorf("%w after 3 attempts: %w", ErrRetryExhausted, errors.New("connection refused")),
			expected: false,
		},
		{
			name:     "deadline outside the client",
			err:      fmt.Errorf("redis get: %w", context.DeadlineExceeded),
			expected: false,
		},
		{name: "nil", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTimeout(tt.err); got != tt.expected {
				t.Errorf("IsTimeout() = %v, want %v", got, tt.expected)
			}
		})
	}
}
