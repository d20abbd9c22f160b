package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sternrassler/meli-trends/pkg/cache"
	"github.com/Sternrassler/meli-trends/pkg/country"
	"github.com/Sternrassler/meli-trends/pkg/logging"
	"github.com/Sternrassler/meli-trends/pkg/meli"
	"github.com/Sternrassler/meli-trends/pkg/session"
	"github.com/Sternrassler/meli-trends/pkg/trends"
)

// MsgInternal is the body message of every unexpected failure.
const MsgInternal = "Internal server error"

var (
	errBadRequestBody = errors.New("invalid request body")
	errBadAuthHeader  = errors.New("invalid authorization header")
	errBadSession     = errors.New("invalid session")
	errNotFound       = errors.New("route not found")
	errNotAllowed     = errors.New("method not allowed")
)

// errorMapping binds a domain error to a response.
type errorMapping struct {
	target  error
	status  int
	message string
}

// errorTable is matched top to bottom with errors.Is; the first hit wins.
var errorTable = []errorMapping{
	{country.ErrInvalid, http.StatusBadRequest, "Invalid country ID"},
	{cache.ErrInvalidPayload, http.StatusBadRequest, "Invalid data format"},
	{trends.ErrInvalidPagination, http.StatusBadRequest, "Invalid pagination parameters"},
	{meli.ErrInvalidCategory, http.StatusBadRequest, "Invalid category ID"},
	{session.ErrInvalidToken, http.StatusBadRequest, "Invalid access token format"},
	{errBadRequestBody, http.StatusBadRequest, "Invalid request body"},
	{errBadAuthHeader, http.StatusUnauthorized, "Invalid authorization header"},
	{errBadSession, http.StatusUnauthorized, "Invalid or expired session"},
	{meli.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{session.ErrExpired, http.StatusUnauthorized, "Session expired"},
	{session.ErrNotFound, http.StatusNotFound, "Session not found"},
	{errNotFound, http.StatusNotFound, "Not found"},
	{errNotAllowed, http.StatusMethodNotAllowed, "Method not allowed"},
	{meli.ErrBlocked, http.StatusServiceUnavailable, "Upstream temporarily unavailable"},
	{meli.ErrMalformed, http.StatusBadGateway, "Invalid upstream response"},
}

// statusFor maps err to a status code and a client-safe message.
func statusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.message
		}
	}

	if meli.IsTimeout(err) {
		return http.StatusGatewayTimeout, "Upstream timeout"
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, "Request body too large"
	}

	var apiErr *meli.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Class == meli.ErrorClassRateLimit:
			return http.StatusTooManyRequests, "Upstream rate limit reached"
		case apiErr.StatusCode == http.StatusNotFound:
			return http.StatusNotFound, "Not found"
		default:
			return http.StatusBadGateway, "Upstream request failed"
		}
	}
	if errors.Is(err, meli.ErrRetryExhausted) {
		return http.StatusBadGateway, "Upstream request failed"
	}

	return http.StatusInternalServerError, MsgInternal
}

// writeError writes {"error": "..."} for err. Server-side failures are logged with the cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)

	logger := logging.FromContext(r.Context())
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error().Err(err).Int("status_code", status).Msg("Request failed")
	case status != http.StatusNotFound:
		logger.Debug().Err(err).Int("status_code", status).Msg("Request rejected")
	}

	writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := logging.NewLogger("server")
		logger.Warn().Err(err).Msg("Failed to write response")
	}
}

// writeRaw writes an already encoded JSON body.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
