package execution

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
)

// ProgressCeiling is the highest value a progress source may report.
// Only a terminal success moves a job to 1.0.
const ProgressCeiling = 0.95

// ProgressSource reports progress for one job until ctx is done.
type ProgressSource interface {
	Run(ctx context.Context, jobID string, report func(float64))
}

// ProgressFunc adapts a function to ProgressSource.
type ProgressFunc func(ctx context.Context, jobID string, report func(float64))

func (f ProgressFunc) Run(ctx context.Context, jobID string, report func(float64)) {
	f(ctx, jobID, report)
}

// Ticker delivers ticks for SimulatedProgress.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// SimulatedProgress advances toward ProgressCeiling on every tick, closing a
// fixed fraction of the remaining distance.
type SimulatedProgress struct {
	Interval  time.Duration
	Rate      float64
	NewTicker func(time.Duration) Ticker
}

// NewSimulatedProgress returns a source ticking every interval.
func NewSimulatedProgress(interval time.Duration) *SimulatedProgress {
	return &SimulatedProgress{Interval: interval}
}

// Next returns the progress value that follows p.
func (s *SimulatedProgress) Next(p float64) float64 {
	rate := s.Rate
	if rate <= 0 || rate >= 1 {
		rate = 0.1
	}
	next := p + (ProgressCeiling-p)*rate
	return min(next, ProgressCeiling)
}

func (s *SimulatedProgress) Run(ctx context.Context, _ string, report func(float64)) {
	interval := s.Interval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	newTicker := s.NewTicker
	if newTicker == nil {
		newTicker = NewTimeTicker
	}
	ticker := newTicker(interval)
	defer ticker.Stop()

	progress := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			progress = s.Next(progress)
			report(progress)
		}
	}
}

// StreamProgress follows server-sent progress events for a job. When the
// stream cannot be opened it hands over to Fallback.
type StreamProgress struct {
	baseURL    string
	httpClient *http.Client
	fallback   ProgressSource
	logger     zerolog.Logger
}

// NewStreamProgress builds a stream source against the service at baseURL.
func NewStreamProgress(baseURL string, httpClient *http.Client, fallback ProgressSource, logger zerolog.Logger) *StreamProgress {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &StreamProgress{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		fallback:   fallback,
		logger:     logger,
	}
}

func (s *StreamProgress) Run(ctx context.Context, jobID string, report func(float64)) {
	if err := s.stream(ctx, jobID, report); err != nil && ctx.Err() == nil {
		s.logger.Debug().Err(err).Str("job_id", jobID).Msg("execution: progress stream unavailable")
		if s.fallback != nil {
			s.fallback.Run(ctx, jobID, report)
		}
	}
}

func (s *StreamProgress) stream(ctx context.Context, jobID string, report func(float64)) error {
	endpoint := fmt.Sprintf("%s/v1/transform/%s/events", s.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("stream status %d", resp.StatusCode)
	}
	return ReadEvents(resp.Body, func(event string, data []byte) bool {
		if event != "progress" {
			return event != "done"
		}
		var ev domain.ProgressEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Debug().Err(err).Msg("execution: malformed progress event")
			return true
		}
		if ev.JobID == jobID {
			report(ev.Progress)
		}
		return true
	})
}

// ReadEvents parses a text/event-stream body, calling fn per dispatched
// event until fn returns false or the stream ends.
func ReadEvents(r io.Reader, fn func(event string, data []byte) bool) error {
	scanner := bufio.NewScanner(r)
	event := ""
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				name := event
				if name == "" {
					name = "message"
				}
				if !fn(name, []byte(strings.Join(data, "\n"))) {
					return nil
				}
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}
