package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
)

// UsageStats reports per-tool usage over the last `hours` hours (default 24).
func (a *App) UsageStats(w http.ResponseWriter, r *http.Request) {
	if a.Stats == nil {
		a.error(w, http.StatusServiceUnavailable, "history_disabled", "job history is not enabled")
		return
	}
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 24*30 {
			a.error(w, http.StatusBadRequest, "bad_request", "hours must be between 1 and 720")
			return
		}
		hours = n
	}
	since := a.now().Add(-time.Duration(hours) * time.Hour).UTC()
	tools, err := a.Stats.ToolStats(r.Context(), since)
	if err != nil {
		a.log(r).Error().Err(err).Msg("load stats failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	summary := domain.StatsSummary{Since: since, Tools: tools}
	if summary.Tools == nil {
		summary.Tools = []domain.ToolStats{}
	}
	for _, t := range tools {
		summary.Total += t.Total
	}
	a.json(w, http.StatusOK, summary)
}
