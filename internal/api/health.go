package api

import (
	"context"
	"net/http"
	"time"

	"github.com/mirutec/sage/internal/log"
)

// Pinger reports reachability of the optional archive database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// health is a simple liveness endpoint for container probes.
func health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readiness reports whether the engine can serve traffic. The in-memory
// engine is always ready; when an archive is configured its database must
// also answer a ping.
func readiness(pinger Pinger, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ready"}

		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := pinger.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", "error", err)
				body["status"] = "degraded"
				body["archive"] = "unreachable"
				WriteJSON(w, http.StatusServiceUnavailable, body, logger)
				return
			}
			body["archive"] = "ok"
		}

		WriteJSON(w, http.StatusOK, body, logger)
	}
}
