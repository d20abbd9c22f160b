package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/meli-trends/pkg/country"
)

// TTL is applied to every snapshot at write time. Not configurable per call.
const TTL = 3600 * time.Second

var (
	// ErrCacheMiss indicates no snapshot exists for the requested country
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidPayload indicates a write payload that is not a JSON array
	ErrInvalidPayload = errors.New("invalid data format")
)

// Store is the cache-aside store for enriched trend snapshots.
type Store struct {
	redis *redis.Client
	kind  string
	ttl   time.Duration
}

// NewStore creates the enriched trends store with a Redis backend.
func NewStore(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis: redisClient,
		kind:  KindEnrichedTrends,
		ttl:   TTL,
	}
}

func (s *Store) key(c country.Code) string {
	return Key{Kind: s.kind, Country: c}.String()
}

// Get retrieves the snapshot for a country.
// Returns country.ErrInvalid without touching Redis for unknown countries and
// ErrCacheMiss if no snapshot exists (never written or expired).
func (s *Store) Get(ctx context.Context, c country.Code) (*Entry, error) {
	if !c.Valid() {
		return nil, country.ErrInvalid
	}
	cacheKey := s.key(c)

	pipe := s.redis.Pipeline()
	getCmd := pipe.Get(ctx, cacheKey)
	ttlCmd := pipe.PTTL(ctx, cacheKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	data, err := getCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues("redis").Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	CachePayloadBytes.Set(float64(len(data)))

	return &Entry{
		Data:     json.RawMessage(data),
		CachedAt: s.cachedAt(ttlCmd.Val()),
	}, nil
}

// cachedAt derives the write time from the remaining TTL reported by Redis.
func (s *Store) cachedAt(remaining time.Duration) time.Time {
	if remaining <= 0 || remaining > s.ttl {
		return time.Time{}
	}
	return time.Now().Add(-(s.ttl - remaining))
}

// Set overwrites the snapshot for a country and applies the fixed TTL.
// The payload must be a JSON array; anything else is rejected with
// ErrInvalidPayload before Redis is called.
func (s *Store) Set(ctx context.Context, c country.Code, payload json.RawMessage) error {
	if !c.Valid() {
		return country.ErrInvalid
	}
	if !IsArray(payload) {
		return ErrInvalidPayload
	}

	if err := s.redis.Set(ctx, s.key(c), []byte(payload), s.ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheWrites.Inc()
	CachePayloadBytes.Set(float64(len(payload)))
	return nil
}

// Delete removes the snapshot for a country. Deleting a missing snapshot is not an error.
func (s *Store) Delete(ctx context.Context, c country.Code) error {
	if !c.Valid() {
		return country.ErrInvalid
	}
	if err := s.redis.Del(ctx, s.key(c)).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
