package api

import (
	"context"
	"net/http"
	"time"
)

const readyTimeout = 2 * time.Second

// @Summary Liveness probe
// @Tags Ops
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Summary Readiness probe
// @Description Pings the transport and the blob store
// @Tags Ops
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /readyz [get]
func (a *API) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := http.StatusOK
	out := map[string]string{"status": "ok"}
	for _, c := range a.Checks {
		if err := c.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			out["status"] = "unavailable"
			out[c.Name] = err.Error()
			continue
		}
		out[c.Name] = "ok"
	}
	writeJSON(w, status, out)
}
