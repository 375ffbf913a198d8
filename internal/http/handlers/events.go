package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
)

const heartbeatInterval = 15 * time.Second

// TransformEvents streams progress for a job as server-sent events. The
// stream may be opened before the transform is posted; it ends with a
// "done" event once the job finishes.
func (a *App) TransformEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if !jobIDPattern.MatchString(jobID) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid jobId")
		return
	}
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		a.Logger.Debug().Err(err).Msg("clear write deadline")
	}

	updates, release := a.Hub.Subscribe(jobID)
	defer release()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		a.Logger.Debug().Err(err).Msg("event stream flush unsupported")
	}

	timeout := a.StreamTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-deadline.C:
			writeEvent(w, "done", domain.ProgressEvent{JobID: jobID})
			_ = rc.Flush()
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			_ = rc.Flush()
		case p, ok := <-updates:
			if !ok {
				writeEvent(w, "done", domain.ProgressEvent{JobID: jobID, Progress: 1})
				_ = rc.Flush()
				return
			}
			if err := writeEvent(w, "progress", domain.ProgressEvent{JobID: jobID, Progress: p}); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
