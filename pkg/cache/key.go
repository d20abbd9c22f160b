package cache

import (
	"github.com/Sternrassler/meli-trends/pkg/country"
)

// Resource kinds stored in the cache.
const (
	// KindEnrichedTrends is the prefix for enriched trend snapshots.
	KindEnrichedTrends = "enriched_trends"
)

// Key identifies a cached snapshot.
type Key struct {
	// Kind is the resource-kind prefix (e.g. KindEnrichedTrends)
	Kind string

	// Country is the MercadoLibre site identifier
	Country country.Code
}

// EnrichedTrendsKey returns the key of the enriched trends snapshot for c.
func EnrichedTrendsKey(c country.Code) Key {
	return Key{Kind: KindEnrichedTrends, Country: c}
}

// String generates the Redis key.
// Format: kind:country
//
// Example:
//
//	enriched_trends:MLA
func (k Key) String() string {
	return k.Kind + ":" + string(k.Country)
}
