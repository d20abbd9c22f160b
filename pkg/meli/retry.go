package meli

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	meliRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meli_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	meliRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meli_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	meliRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meli_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass returns the retry configuration for an error class.
// base is the client's initial backoff; each class scales it.
func RetryConfigForErrorClass(errorClass ErrorClass, base time.Duration, maxAttempts int) RetryConfig {
	config := DefaultRetryConfig()
	if maxAttempts > 0 {
		config.MaxAttempts = maxAttempts
	}

	switch errorClass {
	case ErrorClassServer:
		config.InitialBackoff = base
		config.MaxBackoff = 10 * base
	case ErrorClassRateLimit:
		// 429 - back off harder
		config.InitialBackoff = 5 * base
		config.MaxBackoff = 60 * base
	case ErrorClassNetwork:
		config.InitialBackoff = 2 * base
		config.MaxBackoff = 30 * base
	default:
		config.InitialBackoff = base
		config.MaxBackoff = 30 * base
	}
	return config
}

// backoff returns the wait before attempt+1, without jitter.
func (c RetryConfig) backoff(attempt int) time.Duration {
	d := c.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * c.BackoffMultiplier)
		if d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return d
}

// retryWithBackoff executes fn with exponential backoff retry logic.
// The error class of each failure picks the backoff schedule; classes that
// must not be retried return immediately.
func retryWithBackoff(ctx context.Context, base time.Duration, maxAttempts int, fn func() error) error {
	var lastErr error

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		errorClass := ClassOf(err)

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}
		if !shouldRetry(errorClass) {
			return lastErr
		}

		config := RetryConfigForErrorClass(errorClass, base, maxAttempts)
		if attempt >= config.MaxAttempts {
			meliRetryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
			log.Warn().
				Str("error_class", string(errorClass)).
				Int("max_attempts", config.MaxAttempts).
				Msg("Retry attempts exhausted")
			return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, lastErr)
		}

		meliRetriesTotal.WithLabelValues(string(errorClass)).Inc()

		// Jitter (±20%)
		wait := time.Duration(float64(config.backoff(attempt)) * (0.8 + rand.Float64()*0.4))
		meliRetryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(wait.Seconds())

		log.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}
}
