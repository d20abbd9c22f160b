package meli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrBlocked is returned while the upstream is blocking us (CloudFront 403)
	// and while the local cooldown is running.
	ErrBlocked = errors.New("upstream blocked")

	// ErrUnauthorized is returned for 401 responses (missing, invalid or expired token).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformed is returned when an upstream body does not match the expected shape.
	ErrMalformed = errors.New("malformed upstream response")

	// ErrInvalidCategory is returned for category IDs that are not of the form MLA1051.
	ErrInvalidCategory = errors.New("invalid category ID")
)

// ErrorClass represents a classification of upstream errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassBlocked represents a CloudFront block page (403 served by the CDN).
	ErrorClassBlocked ErrorClass = "blocked"
)

// APIError is an upstream failure with its HTTP status and classification.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("meli %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("meli %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ClassOf returns the error class of err.
// Errors that are not an *APIError are treated as network errors.
func ClassOf(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ErrorClassNetwork
}

// IsTimeout reports whether err is an upstream call that ran out of time,
// either on its deadline or on timed out attempts.
func IsTimeout(err error) bool {
	if !errors.Is(err, ErrRetryExhausted) && !errors.Is(err, ErrContextCancelled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors are not going to change on retry
		return false
	case ErrorClassBlocked:
		// Retrying a CDN block only extends it
		return false
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}

// classifyResponse categorizes a non-2xx upstream response.
func classifyResponse(resp *http.Response, body []byte) ErrorClass {
	switch {
	case isCloudFrontBlock(resp, body):
		return ErrorClassBlocked
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// isCloudFrontBlock reports whether a 403 was produced by the CDN rather than the API.
func isCloudFrontBlock(resp *http.Response, body []byte) bool {
	if resp.StatusCode != http.StatusForbidden {
		return false
	}
	if strings.Contains(strings.ToLower(resp.Header.Get("X-Cache")), "error from cloudfront") {
		return true
	}
	if strings.EqualFold(resp.Header.Get("Server"), "CloudFront") {
		return true
	}
	isHTML := strings.Contains(resp.Header.Get("Content-Type"), "text/html") ||
		bytes.HasPrefix(bytes.TrimSpace(body), []byte("<"))
	return isHTML && bytes.Contains(bytes.ToLower(body), []byte("cloudfront"))
}

// newAPIError builds the error for a failed response, reading the upstream
// message from a JSON body when there is one.
func newAPIError(resp *http.Response, body []byte, class ErrorClass) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Class:      class,
		Message:    upstreamMessage(body, resp.Status),
	}
	switch {
	case class == ErrorClassBlocked:
		apiErr.Err = ErrBlocked
	case resp.StatusCode == http.StatusUnauthorized:
		apiErr.Err = ErrUnauthorized
	}
	return apiErr
}
