package cache

import (
	"encoding/json"
	"time"
)

// Entry is a cached snapshot as stored in Redis.
type Entry struct {
	// Data is the payload exactly as written (a JSON array)
	Data json.RawMessage `json:"data"`

	// CachedAt is when the snapshot was written
	CachedAt time.Time `json:"cached_at"`
}

// Age returns how long ago the snapshot was written.
// Returns 0 for entries without a timestamp or with a timestamp in the future.
func (e *Entry) Age() time.Duration {
	if e.CachedAt.IsZero() {
		return 0
	}
	age := time.Since(e.CachedAt)
	if age < 0 {
		return 0
	}
	return age
}

// IsArray reports whether data is a well-formed JSON array.
func IsArray(data []byte) bool {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return false
	}
	// json.Unmarshal accepts null into a slice and leaves it nil
	return items != nil
}
