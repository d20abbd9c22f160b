package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/meli-trends/pkg/storage"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := NewStore(storage.NewMemory())
	st.now = func() time.Time { return clock }
	return st, &clock
}

func TestStore_SaveLoadClear(t *testing.T) {
	st, clock := newTestStore(t)
	ctx := context.Background()

	s, err := Session{}.Set(testToken, time.Hour, *clock)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	id, err := st.Save(ctx, "", s.WithUser(7))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" {
		t.Fatal("Save returned empty id")
	}

	loaded, err := st.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Token != testToken || loaded.UserID != 7 {
		t.Errorf("Load = %+v, want token and user 7", loaded)
	}

	if err := st.Clear(ctx, id); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := st.Load(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after Clear error = %v, want ErrNotFound", err)
	}
}

func TestStore_SaveKeepsID(t *testing.T) {
	st, clock := newTestStore(t)
	s, _ := Session{}.Set(testToken, time.Hour, *clock)

	id, err := st.Save(context.Background(), "fixed-id", s)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id != "fixed-id" {
		t.Errorf("id = %q, want fixed-id", id)
	}
}

func TestStore_SaveRejectsExpired(t *testing.T) {
	st, _ := newTestStore(t)
	if _, err := st.Save(context.Background(), "", Session{}); !errors.Is(err, ErrExpired) {
		t.Errorf("Save(zero) error = %v, want ErrExpired", err)
	}
}

func TestStore_LoadExpired(t *testing.T) {
	st, clock := newTestStore(t)
	ctx := context.Background()

	s, _ := Session{}.Set(testToken, time.Hour, *clock)
	id, err := st.Save(ctx, "", s)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The memory KV uses its own clock, so only the session expiry applies here
	*clock = clock.Add(2 * time.Hour)

	if _, err := st.Load(ctx, id); !errors.Is(err, ErrExpired) {
		t.Errorf("Load error = %v, want ErrExpired", err)
	}
	if _, err := st.Load(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired session should be removed, got %v", err)
	}
}

func TestStore_LoadUnknown(t *testing.T) {
	st, _ := newTestStore(t)
	if _, err := st.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load error = %v, want ErrNotFound", err)
	}
	if _, err := st.Load(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(\"\") error = %v, want ErrNotFound", err)
	}
}
