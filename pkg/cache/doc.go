// Package cache provides the enriched-trends cache-aside store with a Redis backend.
//
// The store keeps one snapshot of enriched trend records per country:
//
// - Keys are composed deterministically as "<kind>:<country>" (e.g. enriched_trends:MLA)
// - Payloads are JSON arrays stored and returned verbatim
// - Every write applies a fixed TTL of one hour; Redis expires the key
// - Writes overwrite the whole entry (last writer wins, no merge)
// - Validation happens before any Redis call, so rejected writes never mutate state
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	store := cache.NewStore(redisClient)
//
//	entry, err := store.Get(ctx, country.Argentina)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// compute the data, then write it back
//		err = store.Set(ctx, country.Argentina, payload)
//	}
//
// # Lookup Cache
//
// Memory is an in-process LRU with expiry used for small, frequently read lookups
// (category lists, best sellers) that do not need to be shared across instances.
//
//	categories := cache.NewMemory[[]meli.Category]("categories", 256, 10*time.Minute)
//
// # Metrics
//
//   - meli_cache_hits_total{layer} - Cache hits ("redis", "memory")
//   - meli_cache_misses_total{layer} - Cache misses
//   - meli_cache_writes_total - Successful store writes
//   - meli_cache_payload_bytes - Size of the last payload read or written
//   - meli_cache_errors_total{operation} - Store operation errors
package cache
