package handlers

import (
	"net/http"
)

// isoMillis matches the millisecond UTC timestamps the catalog emits
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Health reports liveness and the configured upstream
// @Summary Health check
// @Description Returns service liveness and the upstream catalog it enriches
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		OK:      true,
		Service: h.config.ServiceName,
		Backend: h.config.UpstreamBaseURL,
		TS:      h.now().UTC().Format(isoMillis),
	})
}
