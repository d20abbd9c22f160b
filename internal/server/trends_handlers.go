package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Sternrassler/meli-trends/pkg/cache"
	"github.com/Sternrassler/meli-trends/pkg/country"
	"github.com/Sternrassler/meli-trends/pkg/meli"
	"github.com/Sternrassler/meli-trends/pkg/trends"
)

// HeaderSuggestedCountry names the site that best matches Accept-Language.
const HeaderSuggestedCountry = "X-Suggested-Country"

// enrichedPage is the body of GET /trends/{country}/enriched.
type enrichedPage struct {
	Trends []trends.Record `json:"trends"`
	Total  int             `json:"total"`
}

// enrichedTrends serves one page of a country's enriched trends.
// refresh=1 drops the stored snapshot first.
func (h *handler) enrichedTrends(w http.ResponseWriter, r *http.Request) {
	c, err := country.Parse(chi.URLParam(r, "country"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	offset, limit, err := pagination(query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.token(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if query.Get("refresh") == "1" {
		if err := h.deps.Trends.Invalidate(r.Context(), c); err != nil {
			writeError(w, r, err)
			return
		}
	}

	page, err := h.deps.Trends.Page(r.Context(), token, c, offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cache.SetStatusHeaders(w.Header(), page.CacheStatus, page.CacheAge)
	writeJSON(w, http.StatusOK, enrichedPage{Trends: page.Trends, Total: page.Total})
}

// pagination reads offset and limit. Range checks belong to trends.Service.
func pagination(query url.Values) (offset, limit int, err error) {
	offset, limit = 0, trends.DefaultLimit
	if v := query.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("%w: offset %q", trends.ErrInvalidPagination, v)
		}
	}
	if v := query.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("%w: limit %q", trends.ErrInvalidPagination, v)
		}
	}
	return offset, limit, nil
}

// rawTrends serves the raw trends of a site.
func (h *handler) rawTrends(w http.ResponseWriter, r *http.Request) {
	c, err := country.Parse(chi.URLParam(r, "country"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.token(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := lookup(w, h.deps.Lookups.Trends, c.String(), func() ([]meli.Trend, error) {
		return h.deps.Upstream.Trends(r.Context(), token, c)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// categoryTrends serves the raw trends of one category.
func (h *handler) categoryTrends(w http.ResponseWriter, r *http.Request) {
	c, err := country.Parse(chi.URLParam(r, "country"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	categoryID := chi.URLParam(r, "categoryID")
	if !meli.ValidCategoryID(categoryID) {
		writeError(w, r, meli.ErrInvalidCategory)
		return
	}
	token, err := h.token(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := lookup(w, h.deps.Lookups.Trends, c.String()+":"+categoryID, func() ([]meli.Trend, error) {
		return h.deps.Upstream.CategoryTrends(r.Context(), token, c, categoryID)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// categories serves the top-level categories of a site.
func (h *handler) categories(w http.ResponseWriter, r *http.Request) {
	c, err := country.Parse(chi.URLParam(r, "country"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.token(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := lookup(w, h.deps.Lookups.Categories, c.String(), func() ([]meli.Category, error) {
		return h.deps.Upstream.Categories(r.Context(), token, c)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// highlights serves the best sellers of a category.
func (h *handler) highlights(w http.ResponseWriter, r *http.Request) {
	c, err := country.Parse(chi.URLParam(r, "country"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	categoryID := chi.URLParam(r, "categoryID")
	if !meli.ValidCategoryID(categoryID) {
		writeError(w, r, meli.ErrInvalidCategory)
		return
	}
	token, err := h.token(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := lookup(w, h.deps.Lookups.Highlights, c.String()+":"+categoryID, func() (*meli.Highlights, error) {
		return h.deps.Upstream.Highlights(r.Context(), token, c, categoryID)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// countries lists the supported sites and suggests one from Accept-Language.
func (h *handler) countries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(HeaderSuggestedCountry, country.Match(r.Header.Get("Accept-Language")).String())
	writeJSON(w, http.StatusOK, country.All())
}

// lookup serves key from mem, loading and storing it on a miss.
// Failed loads are not cached.
func lookup[V any](w http.ResponseWriter, mem *cache.Memory[V], key string, load func() (V, error)) (V, error) {
	if mem != nil {
		if val, ok := mem.Get(key); ok {
			w.Header().Set(cache.HeaderStatus, cache.StatusHit)
			return val, nil
		}
	}

	val, err := load()
	if err != nil {
		return val, err
	}
	if mem != nil {
		mem.Set(key, val)
	}
	w.Header().Set(cache.HeaderStatus, cache.StatusMiss)
	return val, nil
}

// compile-time check
var _ Upstream = (*meli.Client)(nil)
