package api

import (
	"context"
	"net/http"

	"github.com/gurukul-labs/gurukul/internal/log"
)

// Pinger checks connectivity to a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler serves the liveness and readiness probes.
type healthHandler struct {
	db       Pinger
	degraded func() bool
	logger   log.Logger
}

// liveness returns 200 whenever the process is alive.
func (h *healthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// readiness returns 200 when the database is reachable. A retrieval system
// running without its vector index still reports ready (searches fall back
// to in-process ranking) but flags degraded in the body.
func (h *healthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "database not configured", h.logger)
		return
	}
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "not_ready", "database not reachable", h.logger)
		return
	}

	body := map[string]any{"status": "ready"}
	if h.degraded != nil && h.degraded() {
		body["degraded"] = true
	}
	writeJSON(w, http.StatusOK, body, h.logger)
}
