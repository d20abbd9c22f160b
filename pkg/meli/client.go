// Package meli provides the MercadoLibre REST client with retries,
// error classification, CloudFront block detection and typed responses.
package meli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/meli-trends/pkg/logging"
	"github.com/Sternrassler/meli-trends/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream requests.
var (
	meliRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meli_requests_total",
		Help: "Total MercadoLibre requests by endpoint and status",
	}, []string{"endpoint", "status"})

	meliRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meli_request_duration_seconds",
		Help:    "MercadoLibre request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	meliErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meli_errors_total",
		Help: "Total MercadoLibre errors by class",
	}, []string{"class"})
)

// maxBodySize caps how much of an upstream body is read.
const maxBodySize = 10 << 20

// Gate decides whether upstream requests may be sent and learns from blocks.
// *ratelimit.Tracker implements it.
type Gate interface {
	ShouldAllowRequest(ctx context.Context) (bool, error)
	RecordBlock(ctx context.Context, retryAfter time.Duration) (*ratelimit.BlockState, error)
	RecordSuccess(ctx context.Context) error
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the REST API, without trailing slash.
	BaseURL string

	// UserAgent sent with every request.
	UserAgent string

	// Timeout per HTTP attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// InitialBackoff is the base of the per-class backoff schedule.
	InitialBackoff time.Duration

	// Gate is consulted before each request. Nil disables gating.
	Gate Gate
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.mercadolibre.com",
		UserAgent:      "meli-trends/1.0",
		Timeout:        15 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 1 * time.Second,
	}
}

// Client is the MercadoLibre REST client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// New creates a new MercadoLibre client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig().InitialBackoff
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		config:     cfg,
		logger:     logging.NewLogger("meli-client"),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// getJSON performs a GET and decodes the 2xx body into out.
// endpoint is the route label used for metrics; path is the concrete path.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, token string, out any) error {
	body, err := c.get(ctx, endpoint, path, query, token)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, endpoint, err)
	}
	return nil
}

// get performs a GET with gating, retries and error classification.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, token string) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		meliRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if c.config.Gate != nil {
		allowed, err := c.config.Gate.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Block state check failed")
			return nil, fmt.Errorf("block state check: %w", err)
		}
		if !allowed {
			c.logger.Warn().Str("endpoint", endpoint).Msg("Request suppressed while upstream is blocking")
			meliRequestsTotal.WithLabelValues(endpoint, "suppressed").Inc()
			return nil, &APIError{
				StatusCode: http.StatusServiceUnavailable,
				Class:      ErrorClassBlocked,
				Message:    "cooldown active",
				Err:        ErrBlocked,
			}
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body []byte
	var retryAfter time.Duration

	err := retryWithBackoff(ctx, c.config.InitialBackoff, c.config.MaxRetries+1, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return &APIError{Class: ErrorClassClient, Message: "build request", Err: err}
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("path", path).
			Msg("Executing upstream request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			meliErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			meliRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			meliErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			meliRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return fmt.Errorf("read body: %w", err)
		}

		status := strconv.Itoa(resp.StatusCode)
		meliRequestsTotal.WithLabelValues(endpoint, status).Inc()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body = data
			return nil
		}

		errClass := classifyResponse(resp, data)
		meliErrorsTotal.WithLabelValues(string(errClass)).Inc()
		if errClass == ErrorClassRateLimit {
			retryAfter = ratelimit.ParseRetryAfter(resp.Header, time.Now())
		}

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Upstream request error")

		return newAPIError(resp, data, errClass)
	})

	if err != nil {
		c.recordFailure(ctx, err, retryAfter)
		return nil, err
	}

	if c.config.Gate != nil {
		if err := c.config.Gate.RecordSuccess(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to clear block state")
		}
	}

	return body, nil
}

// recordFailure reports blocks and exhausted rate limits to the gate.
func (c *Client) recordFailure(ctx context.Context, err error, retryAfter time.Duration) {
	if c.config.Gate == nil {
		return
	}
	class := ClassOf(err)
	if class != ErrorClassBlocked && !(class == ErrorClassRateLimit && errors.Is(err, ErrRetryExhausted)) {
		return
	}
	if _, gateErr := c.config.Gate.RecordBlock(ctx, retryAfter); gateErr != nil {
		c.logger.Warn().Err(gateErr).Msg("Failed to record upstream block")
	}
}
