package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/execution"
	"github.com/Knouxai/Knoux-versa-sub002/internal/filters"
	"github.com/Knouxai/Knoux-versa-sub002/internal/i18n"
	"github.com/Knouxai/Knoux-versa-sub002/internal/middleware"
	"github.com/Knouxai/Knoux-versa-sub002/internal/transform"
	"github.com/Knouxai/Knoux-versa-sub002/internal/worker"
)

var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Transform validates a transform request, serves it from the result cache
// when an identical request was processed before, and otherwise runs it on
// the local filter engine. Progress is published under the job id for the
// events endpoint.
func (a *App) Transform(w http.ResponseWriter, r *http.Request) {
	loc := a.localizer(r)
	var payload domain.TransformPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.MaxBodyBytes)).Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, string(transform.KindImageTooLarge), loc.Text(i18n.KeyImageTooLarge))
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if payload.JobID == "" {
		payload.JobID = uuid.NewString()
	}
	if !jobIDPattern.MatchString(payload.JobID) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid jobId")
		return
	}
	defer a.Hub.Finish(payload.JobID)

	token, vip, err := a.vipToken(r, payload.VIPToken)
	if err != nil {
		a.error(w, http.StatusForbidden, string(transform.KindVIPRequired), loc.Text(i18n.KeyVIPRequired))
		return
	}
	payload.VIPToken, payload.IsVIP = token, vip

	log := a.Logger.With().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("job_id", payload.JobID).
		Str("tool", payload.ToolID).
		Logger()

	key, err := execution.Fingerprint(payload)
	if err != nil {
		log.Warn().Err(err).Msg("fingerprint failed")
	}
	if resp, ok := a.cached(r.Context(), key); ok {
		resp.JobID = payload.JobID
		a.Hub.Publish(payload.JobID, 1)
		log.Info().Msg("transform served from cache")
		a.json(w, http.StatusOK, resp)
		return
	}

	a.recordStart(r.Context(), payload)
	resp, err := a.Transport.Process(r.Context(), payload)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("client went away")
			a.recordFinish(context.WithoutCancel(r.Context()), payload.JobID, domain.JobStatusCancelled, "", err.Error(), 0)
			return
		}
		status, code := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Msg("transform failed")
		} else {
			log.Info().Err(err).Msg("transform rejected")
		}
		a.recordFinish(r.Context(), payload.JobID, domain.JobStatusFailed, "", err.Error(), 0)
		a.json(w, status, struct {
			domain.TransformResponse
			Code string `json:"code"`
		}{domain.TransformResponse{Success: false, JobID: payload.JobID, Error: loc.Message(err)}, code})
		return
	}

	resultKey := a.storeResult(r.Context(), payload.JobID, resp.ResultImage)
	a.recordFinish(r.Context(), payload.JobID, domain.JobStatusSucceeded, resultKey, "", resp.ProcessingTimeMs)
	if key != "" {
		if raw, err := json.Marshal(resp); err == nil {
			if err := a.Cache.Set(r.Context(), key, raw, a.CacheTTL); err != nil {
				log.Warn().Err(err).Msg("cache store failed")
			}
		}
	}
	log.Info().Int64("processing_ms", resp.ProcessingTimeMs).Msg("transform done")
	a.json(w, http.StatusOK, resp)
}

func (a *App) cached(ctx context.Context, key string) (domain.TransformResponse, bool) {
	if key == "" || a.Cache == nil {
		return domain.TransformResponse{}, false
	}
	raw, ok, err := a.Cache.Get(ctx, key)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("cache lookup failed")
		return domain.TransformResponse{}, false
	}
	if !ok {
		return domain.TransformResponse{}, false
	}
	var resp domain.TransformResponse
	if err := json.Unmarshal(raw, &resp); err != nil || !resp.Success {
		return domain.TransformResponse{}, false
	}
	return resp, true
}

// storeResult keeps a copy of the result for history and sharing. Storage
// failures never fail the request.
func (a *App) storeResult(ctx context.Context, jobID, dataURL string) string {
	if a.Storage == nil {
		return ""
	}
	data, _, err := transform.DecodeDataURL(dataURL)
	if err != nil {
		a.Logger.Warn().Err(err).Str("job_id", jobID).Msg("result is not a data url")
		return ""
	}
	key := fmt.Sprintf("results/%s/%s.png", a.now().UTC().Format("2006-01-02"), jobID)
	stored, err := a.Storage.Write(ctx, key, data)
	if err != nil {
		a.Logger.Warn().Err(err).Str("job_id", jobID).Msg("store result failed")
		return ""
	}
	return stored
}

func (a *App) recordStart(ctx context.Context, p domain.TransformPayload) {
	if a.Jobs == nil {
		return
	}
	quality, _ := domain.ParseQuality(string(p.Quality))
	err := a.Jobs.Create(ctx, domain.JobRecord{
		ID:      p.JobID,
		ToolID:  p.ToolID,
		Quality: quality,
		IsVIP:   p.IsVIP,
		Status:  domain.JobStatusRunning,
	})
	if err != nil {
		a.Logger.Warn().Err(err).Str("job_id", p.JobID).Msg("record job start failed")
	}
}

func (a *App) recordFinish(ctx context.Context, jobID string, status domain.JobStatus, resultKey, errMsg string, elapsedMs int64) {
	if a.Jobs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := a.Jobs.Finish(ctx, domain.JobRecord{
		ID:               jobID,
		Status:           status,
		ResultKey:        resultKey,
		ErrorMessage:     errMsg,
		ProcessingTimeMs: elapsedMs,
	})
	if err != nil {
		a.Logger.Warn().Err(err).Str("job_id", jobID).Msg("record job finish failed")
	}
}

// statusFor maps a processing error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	if kind, ok := transform.KindOf(err); ok {
		switch kind {
		case transform.KindVIPRequired:
			return http.StatusForbidden, string(kind)
		case transform.KindImageTooLarge:
			return http.StatusRequestEntityTooLarge, string(kind)
		case transform.KindUnsupportedFormat:
			return http.StatusUnsupportedMediaType, string(kind)
		case transform.KindUnknownTool:
			return http.StatusBadRequest, string(kind)
		default:
			return http.StatusUnprocessableEntity, string(kind)
		}
	}
	switch {
	case errors.Is(err, worker.ErrTaskTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, filters.ErrUnsupportedTool):
		return http.StatusNotImplemented, "unsupported_tool"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
