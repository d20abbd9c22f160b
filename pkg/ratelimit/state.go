// Package ratelimit tracks upstream blocking (CloudFront 403s and 429s) and gates requests.
// The block state is shared across all server instances via Redis so one instance
// hitting a block stops every instance from hammering the upstream.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Redis keys for block state storage.
const (
	RedisKeyBlockedUntil = "meli:block:until"
	RedisKeyConsecutive  = "meli:block:consecutive"
	RedisKeyLastUpdate   = "meli:block:last_update"
)

// Cooldown bounds.
const (
	// BaseCooldown is the cooldown applied after the first block without Retry-After.
	BaseCooldown = 30 * time.Second

	// MaxCooldown caps the exponential cooldown and any Retry-After value.
	MaxCooldown = 10 * time.Minute

	// ConsecutiveWindow is how long a block streak is remembered without new blocks.
	ConsecutiveWindow = 1 * time.Hour
)

// BlockState represents the current upstream block state.
type BlockState struct {
	// BlockedUntil is when requests may resume. Zero when not blocked.
	BlockedUntil time.Time `json:"blocked_until"`

	// ConsecutiveBlocks counts blocks since the last successful response.
	ConsecutiveBlocks int `json:"consecutive_blocks"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when no block is active and no streak is open.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state is older than maxAge.
func (s *BlockState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsBlocked reports whether requests must be rejected at now.
func (s *BlockState) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// TimeUntilUnblock returns the remaining cooldown, or 0 if not blocked.
func (s *BlockState) TimeUntilUnblock(now time.Time) time.Duration {
	d := s.BlockedUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth recomputes IsHealthy at now.
func (s *BlockState) UpdateHealth(now time.Time) {
	s.IsHealthy = !s.IsBlocked(now) && s.ConsecutiveBlocks == 0
}

// Cooldown returns how long to back off after the n-th consecutive block.
// A positive retryAfter from the upstream wins over the exponential schedule.
func Cooldown(consecutive int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if retryAfter > MaxCooldown {
			return MaxCooldown
		}
		return retryAfter
	}
	if consecutive < 1 {
		consecutive = 1
	}
	d := BaseCooldown
	for i := 1; i < consecutive; i++ {
		d *= 2
		if d >= MaxCooldown {
			return MaxCooldown
		}
	}
	return d
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
// Returns 0 when absent or unparseable.
func ParseRetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
