package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthProbeKey = "versa:healthz"

// Health reports liveness plus the state of the optional backends. A cache
// that cannot be reached degrades the report without failing the probe since
// transforms still run uncached.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	cacheState := "ok"
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, _, err := a.Cache.Get(ctx, healthProbeKey); err != nil {
		a.log(r).Warn().Err(err).Msg("cache health probe failed")
		status, cacheState = "degraded", "unreachable"
	}
	uptime := 0.0
	if !a.Started.IsZero() {
		uptime = a.now().Sub(a.Started).Seconds()
	}
	a.json(w, http.StatusOK, map[string]any{
		"status":         status,
		"cache":          cacheState,
		"tools":          len(a.Catalog.Tools()),
		"history":        a.Jobs != nil,
		"uptime_seconds": uptime,
	})
}
