// Package session models a MercadoLibre access-token session.
//
// A Session is a plain value: IsValid, Set and Clear never touch shared state.
// Persistence goes through Store, which writes sessions into a storage.KV.
package session

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// DefaultTTL matches the lifetime of a MercadoLibre access token.
const DefaultTTL = 6 * time.Hour

var (
	// ErrInvalidToken indicates a token that does not look like a MercadoLibre access token
	ErrInvalidToken = errors.New("invalid access token")

	// ErrNotFound indicates no session is stored under the requested id
	ErrNotFound = errors.New("session not found")

	// ErrExpired indicates the stored session has passed its expiry
	ErrExpired = errors.New("session expired")
)

// tokenPattern accepts app tokens (APP_USR-...) and test tokens (TG-...).
var tokenPattern = regexp.MustCompile(`^(APP_USR|TG)-[A-Za-z0-9-]{8,}$`)

// Session holds an access token and its expiry.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidToken reports whether token has the shape of a MercadoLibre access token.
func ValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// IsValid reports whether the session carries a token that has not expired at now.
func (s Session) IsValid(now time.Time) bool {
	return s.Token != "" && now.Before(s.ExpiresAt)
}

// Set returns a session holding token, expiring ttl after now.
// Surrounding whitespace (common when pasting) is trimmed.
func (s Session) Set(token string, ttl time.Duration, now time.Time) (Session, error) {
	token = strings.TrimSpace(token)
	if !ValidToken(token) {
		return s, ErrInvalidToken
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Session{
		Token:     token,
		UserID:    s.UserID,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// WithUser returns a copy of the session bound to userID.
func (s Session) WithUser(userID int64) Session {
	s.UserID = userID
	return s
}

// Clear returns the empty session.
func (s Session) Clear() Session {
	return Session{}
}

// Remaining returns the time left before expiry, or 0 if expired.
func (s Session) Remaining(now time.Time) time.Duration {
	if !s.IsValid(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}
