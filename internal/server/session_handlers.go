package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Sternrassler/meli-trends/pkg/logging"
	"github.com/Sternrassler/meli-trends/pkg/session"
)

// Authentication headers accepted by upstream-calling routes.
const (
	HeaderAuthorization = "Authorization"
	HeaderSessionID     = "X-Session-ID"
)

// maxSessionBodyBytes caps POST /session bodies.
const maxSessionBodyBytes = 64 << 10

// sessionResponse never carries the token.
type sessionResponse struct {
	SessionID string     `json:"session_id"`
	Valid     bool       `json:"valid"`
	UserID    int64      `json:"user_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// token resolves the upstream access token of a request.
// A bearer token wins over X-Session-ID; neither yields "".
func (h *handler) token(r *http.Request) (string, error) {
	if auth := r.Header.Get(HeaderAuthorization); auth != "" {
		tok, ok := strings.CutPrefix(auth, "Bearer ")
		tok = strings.TrimSpace(tok)
		if !ok || tok == "" {
			return "", errBadAuthHeader
		}
		return tok, nil
	}

	if id := r.Header.Get(HeaderSessionID); id != "" {
		s, err := h.deps.Sessions.Load(r.Context(), id)
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			return "", fmt.Errorf("%w: %w", errBadSession, err)
		}
		if err != nil {
			return "", err
		}
		return s.Token, nil
	}

	return "", nil
}

// createSession validates a token against the upstream and stores it.
func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSessionBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", errBadRequestBody, err))
		return
	}

	s, err := session.Session{}.Set(req.Token, h.deps.SessionTTL, h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.deps.Upstream.Me(r.Context(), s.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s = s.WithUser(user.ID)

	id, err := h.deps.Sessions.Save(r.Context(), "", s)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info().
		Int64("user_id", user.ID).
		Time("expires_at", s.ExpiresAt).
		Msg("Session created")

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: id,
		Valid:     true,
		UserID:    user.ID,
		ExpiresAt: &s.ExpiresAt,
	})
}

// getSession reports whether a session is still usable.
func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s, err := h.deps.Sessions.Load(r.Context(), id)
	if errors.Is(err, session.ErrExpired) {
		writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Valid: false})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: id,
		Valid:     true,
		UserID:    s.UserID,
		ExpiresAt: &s.ExpiresAt,
	})
}

// deleteSession clears a session. Clearing an unknown id succeeds.
func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Sessions.Clear(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info().Msg("Session cleared")
	w.WriteHeader(http.StatusNoContent)
}
