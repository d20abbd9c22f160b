package pager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/meli-trends/pkg/country"
	"github.com/Sternrassler/meli-trends/pkg/logging"
	"github.com/Sternrassler/meli-trends/pkg/trends"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// FetchesTotal counts page fetches by outcome.
var FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "meli_pager_fetches_total",
	Help: "Total page fetches by result (success, error, timeout, discarded)",
}, []string{"result"})

// State is the fetch state of a Controller.
type State int

const (
	// StateIdle means no fetch is running and the last one (if any) succeeded.
	StateIdle State = iota
	// StateLoading means exactly one fetch is in flight.
	StateLoading
	// StateError means the last fetch failed.
	StateError
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MsgTimeout is stored as the error when a fetch exceeds FetchTimeout.
const MsgTimeout = "Request timed out"

// Page is one page of enriched trends as returned by the server.
type Page struct {
	Trends      []trends.Record
	Total       int
	CacheStatus string
	CacheAge    time.Duration
}

// PageFetcher fetches one page of a country's enriched trends.
type PageFetcher interface {
	FetchPage(ctx context.Context, c country.Code, offset, limit int) (Page, error)
}

// Config holds controller configuration.
type Config struct {
	// Limit is the page size requested on every fetch
	Limit int
	// AutoLoad enables the initial fetch in AutoLoad
	AutoLoad bool
	// FetchTimeout bounds each fetch
	FetchTimeout time.Duration
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		Limit:        20,
		AutoLoad:     true,
		FetchTimeout: 30 * time.Second,
	}
}

// FetchState is a point-in-time copy of a controller's state.
type FetchState struct {
	Country     country.Code
	Records     []trends.Record
	Offset      int
	Total       int
	State       State
	Error       string
	HasMore     bool
	CacheStatus string
	CacheAge    time.Duration
}

// Controller accumulates pages of one country's enriched trends.
// It is safe for concurrent use.
type Controller struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger

	mu          sync.Mutex
	country     country.Code
	records     []trends.Record
	offset      int
	total       int
	state       State
	errMsg      string
	cacheStatus string
	cacheAge    time.Duration
	autoLoaded  bool

	// generation changes on every country switch; results of older
	// fetches are discarded.
	generation uint64
	cancel     context.CancelFunc
}

// New creates a controller for country c. Zero config values fall back to the defaults.
func New(fetcher PageFetcher, c country.Code, config Config) *Controller {
	defaults := DefaultConfig()
	if config.Limit <= 0 {
		config.Limit = defaults.Limit
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = defaults.FetchTimeout
	}

	return &Controller{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger("pager"),
		country: c,
	}
}

// HasMore reports whether another page can be loaded: at least one record
// has landed and fewer records than the reported total are held.
func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMoreLocked()
}

func (c *Controller) hasMoreLocked() bool {
	return len(c.records) < c.total && len(c.records) > 0
}

// State returns the current fetch state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() FetchState {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]trends.Record, len(c.records))
	copy(records, c.records)

	return FetchState{
		Country:     c.country,
		Records:     records,
		Offset:      c.offset,
		Total:       c.total,
		State:       c.state,
		Error:       c.errMsg,
		HasMore:     c.hasMoreLocked(),
		CacheStatus: c.cacheStatus,
		CacheAge:    c.cacheAge,
	}
}

// LoadMore fetches the next page and appends its new records.
// It is a no-op unless HasMore is true and no fetch is in flight.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateLoading || !c.hasMoreLocked() {
		c.mu.Unlock()
		return nil
	}
	return c.fetchLocked(ctx, true)
}

// Refresh discards all records and fetches the first page again.
// It is a no-op while a fetch is in flight.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateLoading {
		c.mu.Unlock()
		return nil
	}
	c.records = nil
	c.offset = 0
	return c.fetchLocked(ctx, false)
}

// AutoLoad performs the initial fetch for the current country, once.
// It does nothing when auto-loading is disabled, when records or an error
// are already present, or when it already ran for this country.
func (c *Controller) AutoLoad(ctx context.Context) error {
	c.mu.Lock()
	if !c.config.AutoLoad || c.autoLoaded || c.state == StateLoading ||
		len(c.records) > 0 || c.errMsg != "" {
		c.mu.Unlock()
		return nil
	}
	c.autoLoaded = true
	return c.fetchLocked(ctx, false)
}

// SetCountry switches to another country. All state is reset and an
// in-flight fetch is cancelled; its result is discarded. No fetch is started.
func (c *Controller) SetCountry(code country.Code) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if code == c.country {
		return
	}

	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	c.country = code
	c.records = nil
	c.offset = 0
	c.total = 0
	c.state = StateIdle
	c.errMsg = ""
	c.cacheStatus = ""
	c.cacheAge = 0
	c.autoLoaded = false

	c.logger.Debug().Str("country", code.String()).Msg("Country changed - state reset")
}

// fetchLocked runs one fetch. It must be called with c.mu held and
// releases it while the request is outstanding.
func (c *Controller) fetchLocked(ctx context.Context, appendPage bool) error {
	c.state = StateLoading
	c.errMsg = ""

	gen := c.generation
	code := c.country
	offset := c.offset
	limit := c.config.Limit

	fetchCtx, cancel := context.WithTimeout(ctx, c.config.FetchTimeout)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	start := time.Now()
	page, err := c.fetcher.FetchPage(fetchCtx, code, offset, limit)
	timedOut := errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		FetchesTotal.WithLabelValues("discarded").Inc()
		c.logger.Debug().
			Str("country", code.String()).
			Int("offset", offset).
			Msg("Discarding result of superseded fetch")
		return nil
	}
	c.cancel = nil

	if err != nil {
		c.state = StateError
		switch {
		case timedOut:
			c.errMsg = MsgTimeout
			FetchesTotal.WithLabelValues("timeout").Inc()
		default:
			c.errMsg = errorMessage(err)
			FetchesTotal.WithLabelValues("error").Inc()
		}
		c.logger.Warn().
			Err(err).
			Str("country", code.String()).
			Int("offset", offset).
			Msg("Page fetch failed")
		return fmt.Errorf("fetch page at offset %d: %w", offset, err)
	}

	c.total = page.Total
	if appendPage {
		c.records = mergeByKeyword(c.records, page.Trends)
	} else {
		c.records = append([]trends.Record(nil), page.Trends...)
	}
	c.offset += len(page.Trends)
	c.cacheStatus = page.CacheStatus
	c.cacheAge = page.CacheAge
	c.state = StateIdle
	FetchesTotal.WithLabelValues("success").Inc()

	c.logger.Debug().
		Str("country", code.String()).
		Int("offset", c.offset).
		Int("total", c.total).
		Int("records", len(c.records)).
		Str("cache_status", page.CacheStatus).
		Dur("duration", time.Since(start)).
		Msg("Page loaded")

	return nil
}

// mergeByKeyword appends the records of page whose keyword is not yet in
// existing, in page order.
func mergeByKeyword(existing, page []trends.Record) []trends.Record {
	seen := make(map[string]struct{}, len(existing)+len(page))
	for _, r := range existing {
		seen[r.Keyword] = struct{}{}
	}
	for _, r := range page {
		if _, dup := seen[r.Keyword]; dup {
			continue
		}
		seen[r.Keyword] = struct{}{}
		existing = append(existing, r)
	}
	return existing
}

// errorMessage is the user-facing message stored for a failed fetch.
func errorMessage(err error) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Message
	}
	return err.Error()
}
