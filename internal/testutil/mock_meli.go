// Package testutil provides testing utilities for the MercadoLibre client and server.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock upstream endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockMeLi is a configurable mock MercadoLibre API for testing.
type MockMeLi struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	counts   map[string]int

	requestCount      int
	lastRequestHeader http.Header
}

// NewMockMeLi creates a new mock MercadoLibre server.
// Unconfigured paths answer 404 with an API-style error body.
func NewMockMeLi() *MockMeLi {
	mock := &MockMeLi{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		counts:   make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.counts[r.URL.Path]++
		mock.lastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"message":"resource %s not found","error":"not_found","status":404}`, r.URL.Path)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockMeLi) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockMeLi) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockMeLi) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.counts = make(map[string]int)
	m.lastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockMeLi) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockMeLi) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetSequence answers a path with the given responses in order,
// repeating the last one once the sequence is used up.
func (m *MockMeLi) SetSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetTrends configures the site trends endpoint.
func (m *MockMeLi) SetTrends(site string, resp MockResponse) {
	m.SetResponse("/trends/"+site, resp)
}

// SetSearch configures the site search endpoint.
func (m *MockMeLi) SetSearch(site string, resp MockResponse) {
	m.SetResponse("/sites/"+site+"/search", resp)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockMeLi) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetPathCount returns the number of requests made to path.
func (m *MockMeLi) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[path]
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockMeLi) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// NewJSONResponse creates a 200 OK response with a JSON body.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewTrendsResponse creates a trends body with one entry per keyword.
func NewTrendsResponse(keywords ...string) MockResponse {
	entries := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		slug := strings.ReplaceAll(kw, " ", "-")
		entries = append(entries, fmt.Sprintf(`{"keyword":%q,"url":"https://listado.mercadolibre.com.ar/%s"}`, kw, slug))
	}
	return NewJSONResponse("[" + strings.Join(entries, ",") + "]")
}

// NewCloudFrontBlockResponse creates the 403 HTML page CloudFront serves when blocking.
func NewCloudFrontBlockResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `<HTML><HEAD><TITLE>ERROR: The request could not be satisfied</TITLE></HEAD><BODY>Generated by cloudfront (CloudFront)</BODY></HTML>`,
		Headers: map[string]string{
			"Content-Type": "text/html",
			"Server":       "CloudFront",
			"X-Cache":      "Error from cloudfront",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter string) MockResponse {
	resp := MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"Too many requests","error":"too_many_requests","status":429}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
	if retryAfter != "" {
		resp.Headers["Retry-After"] = retryAfter
	}
	return resp
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Internal server error","error":"internal_error","status":500}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewUnauthorizedResponse creates a 401 response for an invalid token.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"message":"invalid access token","error":"not_found","status":401}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
