package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sternrassler/meli-trends/pkg/storage"
)

const keyPrefix = "session:"

// Store persists sessions in a KV under random ids.
type Store struct {
	kv  storage.KV
	now func() time.Time
}

// NewStore creates a session store over kv.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Save stores s and returns its id. An empty id allocates a new one.
// Invalid or expired sessions are rejected.
func (st *Store) Save(ctx context.Context, id string, s Session) (string, error) {
	now := st.now()
	if !s.IsValid(now) {
		return "", ErrExpired
	}
	if id == "" {
		id = uuid.NewString()
	}

	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	if err := st.kv.Set(ctx, keyPrefix+id, string(data), s.Remaining(now)); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return id, nil
}

// Load returns the session stored under id.
// Expired sessions are removed and reported as ErrExpired.
func (st *Store) Load(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNotFound
	}
	raw, ok, err := st.kv.Get(ctx, keyPrefix+id)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return Session{}, ErrNotFound
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		_ = st.kv.Remove(ctx, keyPrefix+id)
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if !s.IsValid(st.now()) {
		_ = st.kv.Remove(ctx, keyPrefix+id)
		return Session{}, ErrExpired
	}
	return s, nil
}

// Clear removes the session stored under id.
func (st *Store) Clear(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := st.kv.Remove(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
