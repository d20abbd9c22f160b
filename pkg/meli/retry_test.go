package meli

import (
	"context"
	"errors"
	"testing"
	"time"
)

const testBase = 5 * time.Millisecond

func serverErr() error {
	return &APIError{StatusCode: 500, Class: ErrorClassServer, Message: "500 Internal Server Error"}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfigForErrorClass(t *testing.T) {
	tests := []struct {
		name            string
		errorClass      ErrorClass
		expectedInitial time.Duration
		expectedMax     time.Duration
	}{
		{name: "server error config", errorClass: ErrorClassServer, expectedInitial: 1 * time.Second, expectedMax: 10 * time.Second},
		{name: "rate limit config", errorClass: ErrorClassRateLimit, expectedInitial: 5 * time.Second, expectedMax: 60 * time.Second},
		{name: "network error config", errorClass: ErrorClassNetwork, expectedInitial: 2 * time.Second, expectedMax: 30 * time.Second},
		{name: "unknown error class uses default", errorClass: "", expectedInitial: 1 * time.Second, expectedMax: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := RetryConfigForErrorClass(tt.errorClass, time.Second, 0)

			if config.InitialBackoff != tt.expectedInitial {
				t.Errorf("InitialBackoff = %v, want %v", config.InitialBackoff, tt.expectedInitial)
			}
			if config.MaxBackoff != tt.expectedMax {
				t.Errorf("MaxBackoff = %v, want %v", config.MaxBackoff, tt.expectedMax)
			}
			if config.MaxAttempts != 3 {
				t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
			}
		})
	}

	if got := RetryConfigForErrorClass(ErrorClassServer, time.Second, 5).MaxAttempts; got != 5 {
		t.Errorf("MaxAttempts override = %d, want 5", got)
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	config := RetryConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        3 * time.Second,
		BackoffMultiplier: 2.0,
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		if got := config.backoff(i + 1); got != w {
			t.Errorf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), testBase, 3, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), testBase, 3, func() error {
		callCount++
		if callCount < 3 {
			return serverErr()
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), testBase, 3, func() error {
		callCount++
		return serverErr()
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", callCount)
	}

	// The last upstream error stays reachable
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Errorf("Expected wrapped *APIError with status 500, got %v", err)
	}
}

func TestRetryWithBackoff_ClientErrorNoRetry(t *testing.T) {
	callCount := 0
	testErr := &APIError{StatusCode: 404, Class: ErrorClassClient, Message: "not found"}
	err := retryWithBackoff(context.Background(), testBase, 3, func() error {
		callCount++
		return testErr
	})

	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", callCount)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Should not return ErrRetryExhausted for client errors")
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestRetryWithBackoff_BlockedNoRetry(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), testBase, 3, func() error {
		callCount++
		return &APIError{StatusCode: 403, Class: ErrorClassBlocked, Err: ErrBlocked}
	})

	if callCount != 1 {
		t.Errorf("Expected 1 call for blocked, got %d", callCount)
	}
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("Expected ErrBlocked, got %v", err)
	}
}

func TestRetryWithBackoff_NetworkErrorRetried(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), testBase, 2, func() error {
		callCount++
		return errors.New("connection reset by peer")
	})

	if callCount != 2 {
		t.Errorf("Expected 2 calls, got %d", callCount)
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	err := retryWithBackoff(ctx, time.Second, 3, func() error {
		callCount++
		if callCount == 1 {
			go func() {
				time.Sleep(10 * time.Millisecond)
				cancel()
			}()
		}
		return serverErr()
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", callCount)
	}
}

func TestRetryWithBackoff_ContextCancelledImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	callCount := 0
	err := retryWithBackoff(ctx, testBase, 3, func() error {
		callCount++
		return serverErr()
	})

	if callCount != 1 {
		t.Errorf("Expected exactly 1 call, got %d", callCount)
	}
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
}

func TestRetryWithBackoff_Jitter(t *testing.T) {
	base := 20 * time.Millisecond

	for i := 0; i < 5; i++ {
		var timestamps []time.Time
		_ = retryWithBackoff(context.Background(), base, 3, func() error {
			timestamps = append(timestamps, time.Now())
			if len(timestamps) < 2 {
				return serverErr()
			}
			return nil
		})

		if len(timestamps) != 2 {
			t.Fatalf("Expected 2 attempts, got %d", len(timestamps))
		}
		// Server backoff starts at base, jitter ±20%
		if d := timestamps[1].Sub(timestamps[0]); d < 16*time.Millisecond {
			t.Errorf("Delay %v below jitter range", d)
		}
	}
}
