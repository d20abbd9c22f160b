package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sternrassler/meli-trends/pkg/cache"
	"github.com/Sternrassler/meli-trends/pkg/country"
	"github.com/Sternrassler/meli-trends/pkg/logging"
)

// MaxCacheBodyBytes caps POST /enriched-trend-cache bodies.
const MaxCacheBodyBytes = 10 << 20

// nullBody is the miss response of GET /enriched-trend-cache/{country}.
var nullBody = []byte("null")

// getEnrichedCache returns the stored snapshot verbatim, or null on a miss.
func (h *handler) getEnrichedCache(w http.ResponseWriter, r *http.Request) {
	c, err := country.Parse(chi.URLParam(r, "country"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := h.deps.Snapshots.Get(r.Context(), c)
	if errors.Is(err, cache.ErrCacheMiss) {
		cache.SetStatusHeaders(w.Header(), cache.StatusMiss, 0)
		writeRaw(w, http.StatusOK, nullBody)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	cache.SetStatusHeaders(w.Header(), cache.StatusHit, entry.Age())
	writeRaw(w, http.StatusOK, entry.Data)
}

// postEnrichedCache overwrites the snapshot of a country.
// The country is checked before the body is read.
func (h *handler) postEnrichedCache(w http.ResponseWriter, r *http.Request) {
	c, err := country.Parse(chi.URLParam(r, "country"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxCacheBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, fmt.Errorf("%w: %w", cache.ErrInvalidPayload, err))
		return
	}

	if err := h.deps.Snapshots.Set(r.Context(), c, body); err != nil {
		writeError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Debug().
		Str("country", c.String()).
		Int("bytes", len(body)).
		Msg("Snapshot written")

	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "cached": true})
}
