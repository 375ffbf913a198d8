package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/filters"
	"github.com/Knouxai/Knoux-versa-sub002/internal/infra"
	"github.com/Knouxai/Knoux-versa-sub002/internal/selection"
	"github.com/Knouxai/Knoux-versa-sub002/internal/transform"
	"github.com/Knouxai/Knoux-versa-sub002/internal/worker"
)

// ImageLoader resolves a non-inline image reference to encoded bytes.
type ImageLoader func(ctx context.Context, ref string) ([]byte, error)

// LocalOptions configures a LocalTransport.
type LocalOptions struct {
	Engine  *filters.Engine
	Runner  *worker.Runner
	Hub     *worker.Hub
	Builder *transform.Builder
	Loader  ImageLoader
	Logger  *infra.Logger
}

// LocalTransport runs transforms in-process on the filter engine.
type LocalTransport struct {
	engine  *filters.Engine
	runner  *worker.Runner
	hub     *worker.Hub
	builder *transform.Builder
	loader  ImageLoader
	logger  *infra.Logger
}

// NewLocalTransport fills unset options with defaults sharing one hub.
func NewLocalTransport(opts LocalOptions) *LocalTransport {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	hub := opts.Hub
	if hub == nil {
		hub = worker.NewHub()
	}
	runner := opts.Runner
	if runner == nil {
		runner = worker.NewRunner(worker.Options{Hub: hub, Logger: logger})
	}
	engine := opts.Engine
	if engine == nil {
		engine = filters.NewEngine(logger)
	}
	builder := opts.Builder
	if builder == nil {
		builder = transform.NewBuilder(nil)
	}
	return &LocalTransport{
		engine:  engine,
		runner:  runner,
		hub:     hub,
		builder: builder,
		loader:  opts.Loader,
		logger:  logger,
	}
}

// Hub exposes the progress hub tasks publish to.
func (t *LocalTransport) Hub() *worker.Hub { return t.hub }

// Transform implements Transport. Failures come back as unsuccessful
// responses, the same way the HTTP service reports them.
func (t *LocalTransport) Transform(ctx context.Context, payload domain.TransformPayload) (domain.TransformResponse, error) {
	resp, err := t.Process(ctx, payload)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return domain.TransformResponse{}, err
		}
		return domain.TransformResponse{Success: false, JobID: payload.JobID, Error: err.Error()}, nil
	}
	return resp, nil
}

// Process validates payload, runs the filter on the worker pool and returns
// the PNG result inline. Validation failures are *transform.ValidationError.
func (t *LocalTransport) Process(ctx context.Context, payload domain.TransformPayload) (domain.TransformResponse, error) {
	start := time.Now()
	decoded, rawSettings, err := payload.Request()
	if err != nil {
		return domain.TransformResponse{}, &transform.ValidationError{Kind: transform.KindInvalidSetting, Field: "request", Detail: err.Error()}
	}
	req, err := t.builder.Build(transform.Input{
		ImageRef:        decoded.ImageRef,
		SecondImageRef:  decoded.SecondImageRef,
		Prompt:          decoded.Prompt,
		ToolID:          decoded.ToolID,
		Selection:       decoded.Selection,
		Scale:           decoded.Scale,
		Quality:         string(decoded.Quality),
		IsVIP:           decoded.IsVIP,
		VIPSessionToken: decoded.VIPSessionToken,
		Settings:        rawSettings,
	})
	if err != nil {
		return domain.TransformResponse{}, err
	}
	source, err := t.load(ctx, req.ImageRef)
	if err != nil {
		return domain.TransformResponse{}, err
	}
	var second []byte
	if req.SecondImageRef != "" {
		if second, err = t.load(ctx, req.SecondImageRef); err != nil {
			return domain.TransformResponse{}, err
		}
	}

	brush := selection.DefaultBrushWidth
	if req.Scale > 0 {
		brush /= req.Scale
	}
	job := filters.Job{
		ToolID:     req.ToolID,
		Prompt:     req.Prompt,
		Quality:    req.Quality,
		Selection:  req.NativeSelection(),
		BrushWidth: brush,
		Settings:   req.Settings,
	}
	handle := t.runner.Submit(ctx, worker.Task{
		ID:    payload.JobID,
		Input: source,
		Run: func(ctx context.Context, input []byte, progress func(float64)) ([]byte, error) {
			j := job
			img, err := decodeImage(input)
			if err != nil {
				return nil, err
			}
			j.Source = img
			if second != nil {
				if j.Second, err = decodeImage(second); err != nil {
					return nil, err
				}
			}
			out, err := t.engine.Apply(ctx, j, progress)
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
				return nil, fmt.Errorf("execution: encode result: %w", err)
			}
			return buf.Bytes(), nil
		},
	})
	out, err := handle.Wait(ctx)
	if err != nil {
		return domain.TransformResponse{}, err
	}
	elapsed := time.Since(start)
	t.logger.Debug().
		Str("job_id", payload.JobID).
		Str("tool", req.ToolID).
		Dur("elapsed", elapsed).
		Msg("execution: local transform done")
	return domain.TransformResponse{
		Success:          true,
		JobID:            payload.JobID,
		ResultImage:      transform.EncodeDataURL("image/png", out),
		ProcessingTimeMs: max(elapsed.Milliseconds(), 1),
	}, nil
}

// Progress returns a source that follows this transport's hub.
func (t *LocalTransport) Progress() ProgressSource {
	return ProgressFunc(func(ctx context.Context, jobID string, report func(float64)) {
		updates, release := t.hub.Subscribe(jobID)
		defer release()
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-updates:
				if !ok {
					return
				}
				report(p)
			}
		}
	})
}

func (t *LocalTransport) load(ctx context.Context, ref string) ([]byte, error) {
	if transform.IsDataURL(ref) {
		data, _, err := transform.DecodeDataURL(ref)
		if err != nil {
			return nil, &transform.ValidationError{Kind: transform.KindUnsupportedFormat, Field: "image", Detail: err.Error()}
		}
		return data, nil
	}
	if t.loader == nil {
		return nil, &transform.ValidationError{Kind: transform.KindUnsupportedFormat, Field: "image", Detail: "only inline images are accepted"}
	}
	data, err := t.loader(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("execution: load %s: %w", ref, err)
	}
	return data, nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, err := transform.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	return img, nil
}
