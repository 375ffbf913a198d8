package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/storage"
)

type jobDTO struct {
	ID               string    `json:"id"`
	ToolID           string    `json:"toolId"`
	Quality          string    `json:"quality"`
	IsVIP            bool      `json:"isVIP"`
	Status           string    `json:"status"`
	ResultURL        string    `json:"resultUrl,omitempty"`
	Error            string    `json:"error,omitempty"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (a *App) toDTO(j domain.JobRecord) jobDTO {
	dto := jobDTO{
		ID:               j.ID,
		ToolID:           j.ToolID,
		Quality:          string(j.Quality),
		IsVIP:            j.IsVIP,
		Status:           string(j.Status),
		Error:            j.ErrorMessage,
		ProcessingTimeMs: j.ProcessingTimeMs,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}
	if j.ResultKey != "" && a.StorageBaseURL != "" {
		dto.ResultURL = storage.PublicURL(a.StorageBaseURL, j.ResultKey)
	}
	return dto
}

// GetJob returns one history entry.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	if a.Jobs == nil {
		a.error(w, http.StatusServiceUnavailable, "history_disabled", "job history is not enabled")
		return
	}
	job, err := a.Jobs.GetByID(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.log(r).Error().Err(err).Msg("load job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, a.toDTO(job))
}

// ListJobs returns the most recent history entries.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	if a.Jobs == nil {
		a.error(w, http.StatusServiceUnavailable, "history_disabled", "job history is not enabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	jobs, err := a.Jobs.ListRecent(r.Context(), limit)
	if err != nil {
		a.log(r).Error().Err(err).Msg("list jobs failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	items := make([]jobDTO, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, a.toDTO(j))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
