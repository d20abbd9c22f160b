package server

import (
	"context"
	"net/http"
	"time"
)

// readyTimeout bounds the Redis ping of /ready.
const readyTimeout = 2 * time.Second

// health is the liveness probe.
func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ready reports 503 while Redis is unreachable.
func (h *handler) ready(w http.ResponseWriter, r *http.Request) {
	if h.deps.Redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := h.deps.Redis.Ping(ctx).Err(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  "Redis unavailable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
