package cache

import (
	"net/http"
	"strconv"
	"time"
)

// Response headers describing how a payload was served.
const (
	HeaderStatus = "X-Cache-Status"
	HeaderAge    = "X-Cache-Age"
)

// Cache status values.
const (
	StatusHit  = "HIT"
	StatusMiss = "MISS"
)

// SetStatusHeaders writes the cache status and, for hits, the snapshot age in whole seconds.
func SetStatusHeaders(h http.Header, status string, age time.Duration) {
	if h == nil {
		return
	}
	h.Set(HeaderStatus, status)
	if status == StatusHit {
		h.Set(HeaderAge, strconv.FormatInt(int64(age/time.Second), 10))
	} else {
		h.Del(HeaderAge)
	}
}

// ParseStatusHeaders reads the headers written by SetStatusHeaders.
// Missing or malformed values yield an empty status and zero age.
// These headers are informational only.
func ParseStatusHeaders(h http.Header) (status string, age time.Duration) {
	if h == nil {
		return "", 0
	}
	status = h.Get(HeaderStatus)
	if status != StatusHit && status != StatusMiss {
		status = ""
	}
	if ageStr := h.Get(HeaderAge); ageStr != "" {
		if secs, err := strconv.ParseInt(ageStr, 10, 64); err == nil && secs >= 0 {
			age = time.Duration(secs) * time.Second
		}
	}
	return status, age
}
