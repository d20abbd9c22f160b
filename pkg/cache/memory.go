package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is a per-instance LRU cache with a fixed TTL per entry.
// It backs short-lived lookups that are cheap to recompute and need no sharing.
type Memory[V any] struct {
	name  string
	cache *expirable.LRU[string, V]
}

// NewMemory creates a Memory cache holding at most size entries for ttl each.
// name is only used in log fields.
func NewMemory[V any](name string, size int, ttl time.Duration) *Memory[V] {
	if size <= 0 {
		size = 128
	}
	return &Memory[V]{
		name:  name,
		cache: expirable.NewLRU[string, V](size, nil, ttl),
	}
}

// Name returns the cache name.
func (m *Memory[V]) Name() string {
	return m.name
}

// Get returns the value for key and whether it was present and unexpired.
func (m *Memory[V]) Get(key string) (V, bool) {
	val, ok := m.cache.Get(key)
	if ok {
		CacheHits.WithLabelValues("memory").Inc()
		return val, true
	}
	CacheMisses.WithLabelValues("memory").Inc()
	return val, false
}

// Set adds or replaces the value for key.
func (m *Memory[V]) Set(key string, val V) {
	m.cache.Add(key, val)
}

// Delete removes key.
func (m *Memory[V]) Delete(key string) {
	m.cache.Remove(key)
}

// Len returns the number of cached entries, including ones not yet evicted.
func (m *Memory[V]) Len() int {
	return m.cache.Len()
}
