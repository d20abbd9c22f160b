package trends

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/meli-trends/pkg/cache"
	"github.com/Sternrassler/meli-trends/pkg/country"
	"github.com/Sternrassler/meli-trends/pkg/logging"
	"github.com/Sternrassler/meli-trends/pkg/meli"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Pagination bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ComputeTimeout bounds one upstream fetch-and-enrich run.
const ComputeTimeout = 2 * time.Minute

// ErrInvalidPagination is returned for offset < 0 or limit outside [1, MaxLimit].
var ErrInvalidPagination = errors.New("invalid pagination parameters")

// Snapshots is the cache-aside store. *cache.Store implements it.
type Snapshots interface {
	Get(ctx context.Context, c country.Code) (*cache.Entry, error)
	Set(ctx context.Context, c country.Code, payload json.RawMessage) error
	Delete(ctx context.Context, c country.Code) error
}

// Source returns the raw trends of a site. *meli.Client implements it.
type Source interface {
	Trends(ctx context.Context, token string, c country.Code) ([]meli.Trend, error)
}

// Enricher turns raw trends into records. *enrich.Enricher implements it.
type Enricher interface {
	Enrich(ctx context.Context, token string, c country.Code, raw []meli.Trend) []Record
}

// PageResult is one window of a country's enriched trends.
type PageResult struct {
	Trends      []Record
	Total       int
	CacheStatus string
	CacheAge    time.Duration
}

// Service serves enriched trends from the snapshot store and computes
// them from the upstream on a miss.
type Service struct {
	store    Snapshots
	source   Source
	enricher Enricher
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewService creates the enriched trends service.
func NewService(store Snapshots, source Source, enricher Enricher) *Service {
	return &Service{
		store:    store,
		source:   source,
		enricher: enricher,
		logger:   logging.NewLogger("trends-service"),
	}
}

// snapshot is the full record list of a country with its cache status.
type snapshot struct {
	records []Record
	status  string
	age     time.Duration
}

// Page returns records [offset, offset+limit) of a country's snapshot.
// token is forwarded to the upstream on a miss.
func (s *Service) Page(ctx context.Context, token string, c country.Code, offset, limit int) (*PageResult, error) {
	if !c.Valid() {
		return nil, country.ErrInvalid
	}
	if offset < 0 || limit < 1 || limit > MaxLimit {
		return nil, ErrInvalidPagination
	}

	snap, err := s.load(ctx, token, c)
	if err != nil {
		return nil, err
	}

	return &PageResult{
		Trends:      window(snap.records, offset, limit),
		Total:       len(snap.records),
		CacheStatus: snap.status,
		CacheAge:    snap.age,
	}, nil
}

// Invalidate drops the snapshot of a country so the next Page recomputes it.
func (s *Service) Invalidate(ctx context.Context, c country.Code) error {
	if err := s.store.Delete(ctx, c); err != nil {
		return fmt.Errorf("invalidate snapshot: %w", err)
	}
	s.logger.Info().Str("country", c.String()).Msg("Snapshot invalidated")
	return nil
}

func (s *Service) load(ctx context.Context, token string, c country.Code) (*snapshot, error) {
	entry, err := s.store.Get(ctx, c)
	switch {
	case err == nil:
		records, decodeErr := DecodeRecords(entry.Data)
		if decodeErr == nil {
			s.logger.Debug().
				Str("country", c.String()).
				Int("records", len(records)).
				Dur("age", entry.Age()).
				Msg("Snapshot hit")
			return &snapshot{records: records, status: cache.StatusHit, age: entry.Age()}, nil
		}
		s.logger.Warn().Err(decodeErr).Str("country", c.String()).Msg("Unusable snapshot - recomputing")
	case errors.Is(err, cache.ErrCacheMiss):
	default:
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	return s.compute(ctx, token, c)
}

// compute fetches and enriches a country's trends once per country and token
// at a time; concurrent callers with the same token share the result.
func (s *Service) compute(ctx context.Context, token string, c country.Code) (*snapshot, error) {
	ch := s.group.DoChan(flightKey(c, token), func() (any, error) {
		// Detached so one caller leaving does not fail the others.
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ComputeTimeout)
		defer cancel()
		return s.computeOnce(runCtx, token, c)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug().Str("country", c.String()).Msg("Joined in-flight computation")
		}
		return res.Val.(*snapshot), nil
	}
}

// flightKey scopes a computation to the token that runs it, so a caller is
// never handed the upstream verdict on another caller's token.
func flightKey(c country.Code, token string) string {
	sum := sha256.Sum256([]byte(token))
	return c.String() + ":" + hex.EncodeToString(sum[:8])
}

func (s *Service) computeOnce(ctx context.Context, token string, c country.Code) (*snapshot, error) {
	start := time.Now()

	raw, err := s.source.Trends(ctx, token, c)
	if err != nil {
		return nil, fmt.Errorf("fetch trends: %w", err)
	}

	records := s.enricher.Enrich(ctx, token, c, raw)

	payload, err := EncodeRecords(records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	if err := s.store.Set(ctx, c, payload); err != nil {
		s.logger.Warn().Err(err).Str("country", c.String()).Msg("Failed to write snapshot")
	}

	s.logger.Info().
		Str("country", c.String()).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Snapshot computed")

	return &snapshot{records: records, status: cache.StatusMiss}, nil
}

// window returns records[offset:offset+limit], clamped. Never nil.
func window(records []Record, offset, limit int) []Record {
	if offset >= len(records) {
		return []Record{}
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	out := make([]Record, end-offset)
	copy(out, records[offset:end])
	return out
}
