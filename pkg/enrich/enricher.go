// Package enrich turns raw trend keywords into enriched trend records by
// sampling the site search for each keyword with bounded concurrency.
package enrich

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/meli-trends/pkg/country"
	"github.com/Sternrassler/meli-trends/pkg/logging"
	"github.com/Sternrassler/meli-trends/pkg/meli"
	"github.com/Sternrassler/meli-trends/pkg/trends"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// KeywordsTotal counts enrichment outcomes per keyword.
var KeywordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "meli_enrich_keywords_total",
	Help: "Total keywords processed by enrichment by result (enriched, failed, skipped)",
}, []string{"result"})

// Config holds enrichment configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel search requests
	MaxConcurrency int
	// Timeout per keyword search
	Timeout time.Duration
	// MaxKeywords caps how many trends are enriched; the rest pass through
	MaxKeywords int
	// SampleSize is the number of listings sampled per keyword
	SampleSize int
}

// DefaultConfig returns the default enrichment configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 5,
		Timeout:        10 * time.Second,
		MaxKeywords:    50,
		SampleSize:     20,
	}
}

// Searcher runs a site search. *meli.Client implements it.
type Searcher interface {
	Search(ctx context.Context, token string, site country.Code, query string, limit int) (*meli.SearchResult, error)
}

// Enricher enriches trends with search statistics.
type Enricher struct {
	searcher Searcher
	config   Config
	logger   zerolog.Logger
}

// New creates an Enricher. Zero config values fall back to the defaults.
func New(searcher Searcher, config Config) *Enricher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxKeywords <= 0 {
		config.MaxKeywords = defaults.MaxKeywords
	}
	if config.SampleSize <= 0 {
		config.SampleSize = defaults.SampleSize
	}

	return &Enricher{
		searcher: searcher,
		config:   config,
		logger:   logging.NewLogger("enricher"),
	}
}

// Enrich returns one record per raw trend, in input order. Keywords whose
// search fails are passed through with Enriched=false. Once the upstream
// reports a block, the remaining keywords are not searched.
func (e *Enricher) Enrich(ctx context.Context, token string, site country.Code, raw []meli.Trend) []trends.Record {
	start := time.Now()
	records := make([]trends.Record, len(raw))
	for i, t := range raw {
		records[i] = trends.Record{Keyword: t.Keyword, URL: t.URL}
	}

	n := len(raw)
	if n > e.config.MaxKeywords {
		KeywordsTotal.WithLabelValues("skipped").Add(float64(n - e.config.MaxKeywords))
		n = e.config.MaxKeywords
	}

	var blocked atomic.Bool
	var enriched, failed, skipped atomic.Int32

	var g errgroup.Group
	g.SetLimit(e.config.MaxConcurrency)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if blocked.Load() || ctx.Err() != nil {
				skipped.Add(1)
				KeywordsTotal.WithLabelValues("skipped").Inc()
				return nil
			}

			kwCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
			result, err := e.searcher.Search(kwCtx, token, site, records[i].Keyword, e.config.SampleSize)
			cancel()

			if err != nil {
				if errors.Is(err, meli.ErrBlocked) {
					blocked.Store(true)
				}
				failed.Add(1)
				KeywordsTotal.WithLabelValues("failed").Inc()
				e.logger.Warn().
					Err(err).
					Str("keyword", records[i].Keyword).
					Str("country", site.String()).
					Msg("Keyword enrichment failed - passing through")
				return nil
			}

			records[i] = summarize(records[i], result)
			enriched.Add(1)
			KeywordsTotal.WithLabelValues("enriched").Inc()
			return nil
		})
	}
	_ = g.Wait()

	event := e.logger.Info()
	if blocked.Load() {
		event = e.logger.Warn().Bool("blocked", true)
	}
	event.
		Str("country", site.String()).
		Int("keywords", len(raw)).
		Int32("enriched", enriched.Load()).
		Int32("failed", failed.Load()).
		Int32("skipped", skipped.Load()).
		Dur("duration", time.Since(start)).
		Msg("Enrichment complete")

	return records
}

// summarize fills a record's metrics from a search sample.
func summarize(r trends.Record, result *meli.SearchResult) trends.Record {
	r.Enriched = true
	r.TotalResults = result.Paging.Total
	r.SampleSize = len(result.Results)
	if r.SampleSize == 0 {
		return r
	}

	var sum float64
	var freeShipping int
	r.MinPrice = result.Results[0].Price
	r.MaxPrice = result.Results[0].Price
	r.CurrencyID = result.Results[0].CurrencyID

	for _, item := range result.Results {
		sum += item.Price
		if item.Price < r.MinPrice {
			r.MinPrice = item.Price
		}
		if item.Price > r.MaxPrice {
			r.MaxPrice = item.Price
		}
		r.SoldQuantity += item.SoldQuantity
		if item.Shipping.FreeShipping {
			freeShipping++
		}
	}

	r.AvgPrice = sum / float64(r.SampleSize)
	r.FreeShippingRatio = float64(freeShipping) / float64(r.SampleSize)
	return r
}
