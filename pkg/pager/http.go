package pager

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/meli-trends/pkg/cache"
	"github.com/Sternrassler/meli-trends/pkg/country"
	"github.com/Sternrassler/meli-trends/pkg/trends"
)

// MsgFetchFailed is used when a failed response carries no error message.
const MsgFetchFailed = "Failed to fetch trends"

// Headers used to authenticate against the trends server.
const (
	HeaderAuthorization = "Authorization"
	HeaderSessionID     = "X-Session-ID"
)

// FetchError is a non-2xx response from the trends server.
type FetchError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("trends server returned %d: %s", e.StatusCode, e.Message)
}

// HTTPConfig configures an HTTPFetcher.
type HTTPConfig struct {
	// BaseURL of the trends server
	BaseURL string
	// Token is sent as a bearer token when set
	Token string
	// SessionID is sent as X-Session-ID when set and Token is empty
	SessionID string
	// HTTPClient overrides the default client
	HTTPClient *http.Client
}

// HTTPFetcher fetches pages from GET /trends/{country}/enriched.
type HTTPFetcher struct {
	baseURL    string
	token      string
	sessionID  string
	httpClient *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPFetcher{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		sessionID:  cfg.SessionID,
		httpClient: client,
	}
}

// pageBody is the response body of the enriched trends endpoint.
type pageBody struct {
	Trends []trends.Record `json:"trends"`
	Total  *int            `json:"total"`
}

// errorBody is the error body written by the trends server.
type errorBody struct {
	Error string `json:"error"`
}

// FetchPage implements PageFetcher.
func (f *HTTPFetcher) FetchPage(ctx context.Context, c country.Code, offset, limit int) (Page, error) {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	target := fmt.Sprintf("%s/trends/%s/enriched?%s", f.baseURL, url.PathEscape(c.String()), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	switch {
	case f.token != "":
		req.Header.Set(HeaderAuthorization, "Bearer "+f.token)
	case f.sessionID != "":
		req.Header.Set(HeaderSessionID, f.sessionID)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("request enriched trends: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return Page{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := MsgFetchFailed
		var body errorBody
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			msg = body.Error
		}
		return Page{}, &FetchError{StatusCode: resp.StatusCode, Message: msg}
	}

	var body pageBody
	if err := json.Unmarshal(data, &body); err != nil || body.Total == nil {
		return Page{}, &FetchError{StatusCode: resp.StatusCode, Message: MsgFetchFailed}
	}
	for i, r := range body.Trends {
		if err := r.Validate(); err != nil {
			return Page{}, &FetchError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("%s: record %d has no keyword", MsgFetchFailed, i),
			}
		}
	}

	status, age := cache.ParseStatusHeaders(resp.Header)
	return Page{
		Trends:      body.Trends,
		Total:       *body.Total,
		CacheStatus: status,
		CacheAge:    age,
	}, nil
}
