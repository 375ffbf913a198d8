// Package worker runs cancellable, timeout-bounded tasks on a bounded pool.
// Each task receives its own copy of the input and reports through
// messages tagged with the task id.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Knouxai/Knoux-versa-sub002/internal/infra"
)

// DefaultTimeout bounds tasks that do not set their own.
const DefaultTimeout = 30 * time.Second

// ErrTaskTimeout is reported when a task does not answer within its timeout.
var ErrTaskTimeout = errors.New("worker: task timed out")

// MessageKind tags a Message.
type MessageKind int

const (
	MessageProgress MessageKind = iota
	MessageResult
	MessageError
)

func (k MessageKind) String() string {
	switch k {
	case MessageProgress:
		return "progress"
	case MessageResult:
		return "result"
	case MessageError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is one report from a running task.
type Message struct {
	TaskID   string
	Kind     MessageKind
	Progress float64
	Result   []byte
	Err      error
}

// Func is the work a task performs.
type Func func(ctx context.Context, input []byte, progress func(float64)) ([]byte, error)

// Task describes one unit of work. An empty ID gets a generated one.
type Task struct {
	ID      string
	Input   []byte
	Timeout time.Duration
	Run     Func
}

// Options configures a Runner.
type Options struct {
	Workers        int
	DefaultTimeout time.Duration
	Logger         *infra.Logger
	// Hub, when set, receives every progress message by task id.
	Hub *Hub
}

// Runner executes tasks with at most Workers running at once.
type Runner struct {
	slots   chan struct{}
	timeout time.Duration
	logger  *infra.Logger
	hub     *Hub
}

// NewRunner constructs a runner. Workers defaults to 2.
func NewRunner(opts Options) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = 2
	}
	timeout := opts.DefaultTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Runner{
		slots:   make(chan struct{}, workers),
		timeout: timeout,
		logger:  logger,
		hub:     opts.Hub,
	}
}

// Submit starts task and returns its handle immediately.
func (r *Runner) Submit(ctx context.Context, task Task) *Handle {
	id := task.ID
	if id == "" {
		id = uuid.NewString()
	}
	timeout := task.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	taskCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:       id,
		messages: make(chan Message, 16),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	input := bytes.Clone(task.Input)
	go r.run(taskCtx, h, task.Run, input, timeout)
	return h
}

func (r *Runner) run(ctx context.Context, h *Handle, fn Func, input []byte, timeout time.Duration) {
	defer h.cancel()
	if fn == nil {
		h.finish(nil, errors.New("worker: task has no function"))
		return
	}
	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		h.finish(nil, ctx.Err())
		return
	}
	defer func() { <-r.slots }()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		out []byte
		err error
	}
	results := make(chan outcome, 1)
	start := time.Now()
	go func() {
		out, err := fn(runCtx, input, func(p float64) {
			if h.progress(p) && r.hub != nil {
				r.hub.Publish(h.id, p)
			}
		})
		results <- outcome{out: out, err: err}
	}()

	select {
	case res := <-results:
		h.finish(res.out, res.err)
	case <-runCtx.Done():
		err := runCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s", ErrTaskTimeout, timeout)
		}
		h.finish(nil, err)
	}
	if r.hub != nil {
		r.hub.Finish(h.id)
	}
	r.logger.Debug().
		Str("task_id", h.id).
		Dur("elapsed", time.Since(start)).
		Err(h.err).
		Msg("worker: task finished")
}

// Handle tracks one submitted task.
type Handle struct {
	id       string
	cancel   context.CancelFunc
	mu       sync.Mutex
	messages chan Message
	closed   bool
	done     chan struct{}
	result   []byte
	err      error
}

// ID returns the task id.
func (h *Handle) ID() string { return h.id }

// Messages streams progress followed by exactly one terminal message.
// Progress messages are dropped when the reader falls behind.
func (h *Handle) Messages() <-chan Message { return h.messages }

// Done is closed once the task has a terminal outcome.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel asks the task to stop.
func (h *Handle) Cancel() { h.cancel() }

// Wait blocks until the task ends or ctx is done.
func (h *Handle) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) progress(p float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	// one slot stays free for the terminal message
	if len(h.messages) < cap(h.messages)-1 {
		h.messages <- Message{TaskID: h.id, Kind: MessageProgress, Progress: p}
	}
	return true
}

func (h *Handle) finish(out []byte, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.result, h.err = out, err
	msg := Message{TaskID: h.id, Kind: MessageResult, Result: out}
	if err != nil {
		msg = Message{TaskID: h.id, Kind: MessageError, Err: err}
	}
	h.messages <- msg
	close(h.messages)
	close(h.done)
}
