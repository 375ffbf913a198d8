// Package execution drives the lifecycle of submitted transforms: one
// active job per client, progress reporting, cancellation, stale-response
// dropping and result caching.
package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Knouxai/Knoux-versa-sub002/internal/cache"
	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/infra"
	"github.com/Knouxai/Knoux-versa-sub002/internal/transform"
)

// State is the client lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateRunning    State = "running"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Active reports whether a job is in flight.
func (s State) Active() bool {
	return s == StateSubmitting || s == StateRunning
}

// Terminal reports whether the job has ended.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// Snapshot is an immutable view of the client. Seq increases with every change.
type Snapshot struct {
	Seq            uint64
	State          State
	Job            domain.TransformJob
	Err            error
	Message        string
	FromCache      bool
	ProcessingTime time.Duration
}

// Listener receives snapshots in Seq order. Superseded snapshots may be skipped.
type Listener func(Snapshot)

// Transport performs one transform round trip.
type Transport interface {
	Transform(ctx context.Context, payload domain.TransformPayload) (domain.TransformResponse, error)
}

// Options configures a Client.
type Options struct {
	Transport Transport
	Builder   *transform.Builder
	Progress  ProgressSource
	Cache     cache.Store
	CacheTTL  time.Duration
	// Messages turns errors into user-facing text.
	Messages func(error) string
	Logger   *infra.Logger
	NewID    func() string
	Now      func() time.Time
}

// Client owns at most one active TransformJob.
type Client struct {
	transport Transport
	builder   *transform.Builder
	progress  ProgressSource
	cache     cache.Store
	cacheTTL  time.Duration
	messages  func(error) string
	logger    *infra.Logger
	newID     func() string
	now       func() time.Time

	mu        sync.Mutex
	seq       uint64
	state     State
	job       domain.TransformJob
	err       error
	message   string
	fromCache bool
	elapsed   time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
	listeners map[int]Listener
	nextKey   int

	notifyMu    sync.Mutex
	queue       []Snapshot
	dispatching bool
	delivered   uint64

	// onStale observes dropped responses.
	onStale func(jobID string)
}

// NewClient constructs a client. Transport is required.
func NewClient(opts Options) (*Client, error) {
	if opts.Transport == nil {
		return nil, errors.New("execution: transport is required")
	}
	builder := opts.Builder
	if builder == nil {
		builder = transform.NewBuilder(nil)
	}
	progress := opts.Progress
	if progress == nil {
		progress = NewSimulatedProgress(0)
	}
	messages := opts.Messages
	if messages == nil {
		messages = DefaultMessage
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Client{
		transport: opts.Transport,
		builder:   builder,
		progress:  progress,
		cache:     opts.Cache,
		cacheTTL:  ttl,
		messages:  messages,
		logger:    logger,
		newID:     newID,
		now:       now,
		state:     StateIdle,
		listeners: make(map[int]Listener),
	}, nil
}

// Submit validates in and starts a job. Validation failures leave the client
// untouched. A job already in flight is cancelled and replaced.
func (c *Client) Submit(ctx context.Context, in transform.Input) (string, error) {
	req, err := c.builder.Build(in)
	if err != nil {
		return "", err
	}
	id := c.newID()
	payload, err := req.Payload(id)
	if err != nil {
		return "", fmt.Errorf("execution: encode request: %w", err)
	}
	key, err := Fingerprint(payload)
	if err != nil {
		c.logger.Warn().Err(err).Msg("execution: fingerprint unavailable, cache bypassed")
		key = ""
	}

	var snaps []Snapshot
	c.mu.Lock()
	if c.state.Active() {
		c.logger.Info().Str("job_id", c.job.ID).Str("replaced_by", id).Msg("execution: replacing active job")
		snaps = append(snaps, c.cancelLocked())
	}
	now := c.now()
	c.job = domain.TransformJob{
		ID:        id,
		Request:   req.Clone(),
		Status:    domain.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.state = StateSubmitting
	c.err, c.message, c.fromCache, c.elapsed = nil, "", false, 0
	jobCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	snaps = append(snaps, c.snapshotLocked())
	c.mu.Unlock()

	c.deliver(snaps...)
	go c.run(jobCtx, id, payload, key)
	return id, nil
}

func (c *Client) run(ctx context.Context, id string, payload domain.TransformPayload, key string) {
	if resp, ok := c.lookup(ctx, key); ok {
		if c.markRunning(id) {
			c.finish(id, resp, nil, true, 0)
		}
		return
	}
	if !c.markRunning(id) {
		return
	}

	progressCtx, stopProgress := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.progress.Run(progressCtx, id, func(p float64) { c.advance(id, p) })
	}()

	start := c.now()
	resp, err := c.transport.Transform(ctx, payload)
	stopProgress()
	wg.Wait()
	if err == nil {
		err = checkResponse(id, resp)
	}
	// a result is valid for its fingerprint even when the job went stale
	if err == nil {
		c.store(key, resp)
	}
	c.finish(id, resp, err, false, c.now().Sub(start))
}

func checkResponse(id string, resp domain.TransformResponse) error {
	if !resp.Success {
		msg := strings.TrimSpace(resp.Error)
		if msg == "" {
			msg = "transform failed"
		}
		return &RemoteError{Message: msg}
	}
	if resp.JobID != "" && resp.JobID != id {
		return &RemoteError{Message: fmt.Sprintf("response tagged for job %s", resp.JobID)}
	}
	if strings.TrimSpace(resp.ResultImage) == "" {
		return &RemoteError{Message: "response without result image"}
	}
	return nil
}

func (c *Client) lookup(ctx context.Context, key string) (domain.TransformResponse, bool) {
	if c.cache == nil || key == "" {
		return domain.TransformResponse{}, false
	}
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Msg("execution: cache lookup failed")
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

func (c *Client) store(key string, resp domain.TransformResponse) {
	if c.cache == nil || key == "" {
		return
	}
	resp.JobID = ""
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.cache.Set(context.Background(), key, raw, c.cacheTTL); err != nil {
		c.logger.Warn().Err(err).Msg("execution: cache store failed")
	}
}

func (c *Client) markRunning(id string) bool {
	c.mu.Lock()
	if c.job.ID != id || c.state != StateSubmitting {
		c.mu.Unlock()
		return false
	}
	c.state = StateRunning
	c.job.Status = domain.JobStatusRunning
	c.job.UpdatedAt = c.now()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.deliver(snap)
	return true
}

func (c *Client) advance(id string, p float64) {
	c.mu.Lock()
	if c.job.ID != id || c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	p = min(p, ProgressCeiling)
	if p <= c.job.Progress {
		c.mu.Unlock()
		return
	}
	c.job.Progress = p
	c.job.UpdatedAt = c.now()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.deliver(snap)
}

// finish settles job id. It reports false when the response is stale.
func (c *Client) finish(id string, resp domain.TransformResponse, err error, fromCache bool, elapsed time.Duration) bool {
	c.mu.Lock()
	if c.job.ID != id || !c.state.Active() {
		c.mu.Unlock()
		c.logger.Debug().Str("job_id", id).Msg("execution: stale response dropped")
		if c.onStale != nil {
			c.onStale(id)
		}
		return false
	}
	switch {
	case err == nil:
		c.state = StateSucceeded
		c.job.Status = domain.JobStatusSucceeded
		c.job.Progress = 1
		c.job.ResultRef = resp.ResultImage
		c.fromCache = fromCache
		c.elapsed = elapsed
		if resp.ProcessingTimeMs > 0 {
			c.elapsed = time.Duration(resp.ProcessingTimeMs) * time.Millisecond
		}
	case errors.Is(err, context.Canceled):
		c.state = StateCancelled
		c.job.Status = domain.JobStatusCancelled
		c.err = ErrCancelled
		c.message = c.messages(ErrCancelled)
	default:
		c.state = StateFailed
		c.job.Status = domain.JobStatusFailed
		c.err = err
		c.message = c.messages(err)
		c.job.Error = c.message
	}
	c.job.UpdatedAt = c.now()
	c.releaseLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn().Err(err).Str("job_id", id).Msg("execution: transform failed")
	} else if err == nil {
		c.logger.Info().
			Str("job_id", id).
			Bool("cached", fromCache).
			Dur("elapsed", snap.ProcessingTime).
			Msg("execution: transform succeeded")
	}
	c.deliver(snap)
	return true
}

// Cancel abandons the active job. Its response, if it still arrives, is dropped.
func (c *Client) Cancel() error {
	c.mu.Lock()
	if !c.state.Active() {
		c.mu.Unlock()
		return ErrNotActive
	}
	snap := c.cancelLocked()
	c.mu.Unlock()
	c.deliver(snap)
	return nil
}

func (c *Client) cancelLocked() Snapshot {
	c.state = StateCancelled
	c.job.Status = domain.JobStatusCancelled
	c.job.UpdatedAt = c.now()
	c.err = ErrCancelled
	c.message = c.messages(ErrCancelled)
	c.releaseLocked()
	return c.snapshotLocked()
}

func (c *Client) releaseLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.done != nil {
		select {
		case <-c.done:
		default:
			close(c.done)
		}
	}
}

// Reset returns the client to Idle, cancelling an active job first.
func (c *Client) Reset() {
	var snaps []Snapshot
	c.mu.Lock()
	if c.state.Active() {
		snaps = append(snaps, c.cancelLocked())
	}
	c.state = StateIdle
	c.job = domain.TransformJob{}
	c.err, c.message, c.fromCache, c.elapsed = nil, "", false, 0
	c.done = nil
	snaps = append(snaps, c.snapshotLocked())
	c.mu.Unlock()
	c.deliver(snaps...)
}

// Job returns the current snapshot.
func (c *Client) Job() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked(c.seq)
}

// Wait blocks until the current job is terminal or ctx is done.
func (c *Client) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return c.Job(), ErrNotActive
	}
	select {
	case <-done:
		return c.Job(), nil
	case <-ctx.Done():
		return c.Job(), ctx.Err()
	}
}

// Subscribe registers fn and returns a function that removes it.
func (c *Client) Subscribe(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.nextKey
	c.nextKey++
	c.listeners[key] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, key)
	}
}

func (c *Client) snapshotLocked() Snapshot {
	c.seq++
	return c.viewLocked(c.seq)
}

func (c *Client) viewLocked(seq uint64) Snapshot {
	return Snapshot{
		Seq:            seq,
		State:          c.state,
		Job:            c.job.Clone(),
		Err:            c.err,
		Message:        c.message,
		FromCache:      c.fromCache,
		ProcessingTime: c.elapsed,
	}
}

// deliver hands snapshots to listeners outside c.mu. A single dispatcher
// drains the queue so listeners never run concurrently and may call back
// into the client.
func (c *Client) deliver(snaps ...Snapshot) {
	c.notifyMu.Lock()
	c.queue = append(c.queue, snaps...)
	if c.dispatching {
		c.notifyMu.Unlock()
		return
	}
	c.dispatching = true
	for len(c.queue) > 0 {
		snap := c.queue[0]
		c.queue = c.queue[1:]
		if snap.Seq <= c.delivered {
			continue
		}
		c.delivered = snap.Seq
		c.notifyMu.Unlock()

		c.mu.Lock()
		listeners := make([]Listener, 0, len(c.listeners))
		for _, fn := range c.listeners {
			listeners = append(listeners, fn)
		}
		c.mu.Unlock()
		for _, fn := range listeners {
			fn(snap)
		}

		c.notifyMu.Lock()
	}
	c.dispatching = false
	c.notifyMu.Unlock()
}

// DefaultMessage is the English fallback for user-facing error text.
func DefaultMessage(err error) string {
	var (
		ve *transform.ValidationError
		te *TransportError
		re *RemoteError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "The transform was cancelled."
	case errors.As(err, &ve):
		return "Please check your input and try again."
	case errors.As(err, &te), errors.As(err, &re):
		return "Something went wrong while processing your image. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
