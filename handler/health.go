package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// HealthCheck handles GET /health - reports Redis connectivity.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Health check failed")
		SendJSONError(w, http.StatusServiceUnavailable, err, "Redis is unreachable")
		return
	}

	SendJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CacheMetrics handles GET /cache/metrics - exposes redirect cache counters.
func (h *Handler) CacheMetrics(w http.ResponseWriter, r *http.Request) {
	SendJSONSuccess(w, http.StatusOK, h.cache.GetMetricsSnapshot())
}
