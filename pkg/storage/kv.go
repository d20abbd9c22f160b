// Package storage provides a small key-value persistence interface with
// in-memory and Redis implementations.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyKey is returned for operations on an empty key.
var ErrEmptyKey = errors.New("storage: empty key")

// KV is the persistence interface used for sessions and preferences.
// A ttl of 0 means the value does not expire.
type KV interface {
	// Get returns the value and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
