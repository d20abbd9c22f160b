package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meli_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"layer"}, // "redis", "memory"
	)

	// CacheMisses tracks cache misses by layer
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meli_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"layer"},
	)

	// CacheWrites tracks successful snapshot writes
	CacheWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meli_cache_writes_total",
			Help: "Total number of enriched trend snapshots written",
		},
	)

	// CachePayloadBytes tracks the size of the last snapshot read or written
	CachePayloadBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meli_cache_payload_bytes",
			Help: "Size in bytes of the last enriched trend snapshot read or written",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meli_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
