package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerDeliversTaggedMessages(t *testing.T) {
	r := NewRunner(Options{Workers: 1})
	h := r.Submit(context.Background(), Task{
		ID:    "task-1",
		Input: []byte("abc"),
		Run: func(ctx context.Context, input []byte, progress func(float64)) ([]byte, error) {
			progress(0.5)
			return append(input, '!'), nil
		},
	})

	var msgs []Message
	for m := range h.Messages() {
		msgs = append(msgs, m)
	}
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, "task-1", m.TaskID)
	}
	assert.Equal(t, MessageProgress, msgs[0].Kind)
	assert.Equal(t, 0.5, msgs[0].Progress)
	assert.Equal(t, MessageResult, msgs[1].Kind)
	assert.Equal(t, []byte("abc!"), msgs[1].Result)

	out, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("abc!"), out)
}

func TestRunnerCopiesInput(t *testing.T) {
	r := NewRunner(Options{})
	input := []byte("original")
	release := make(chan struct{})
	h := r.Submit(context.Background(), Task{
		Input: input,
		Run: func(ctx context.Context, in []byte, _ func(float64)) ([]byte, error) {
			<-release
			return in, nil
		},
	})
	copy(input, "mutated!")
	close(release)
	out, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), out)
	assert.NotEmpty(t, h.ID())
}

func TestRunnerTimesOutSilentTask(t *testing.T) {
	r := NewRunner(Options{DefaultTimeout: 20 * time.Millisecond})
	block := make(chan struct{})
	defer close(block)
	h := r.Submit(context.Background(), Task{
		Run: func(ctx context.Context, _ []byte, _ func(float64)) ([]byte, error) {
			<-block
			return nil, nil
		},
	})
	_, err := h.Wait(context.Background())
	assert.True(t, errors.Is(err, ErrTaskTimeout), "got %v", err)

	var last Message
	for m := range h.Messages() {
		last = m
	}
	assert.Equal(t, MessageError, last.Kind)
}

func TestRunnerCancel(t *testing.T) {
	r := NewRunner(Options{})
	started := make(chan struct{})
	h := r.Submit(context.Background(), Task{
		Run: func(ctx context.Context, _ []byte, _ func(float64)) ([]byte, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	<-started
	h.Cancel()
	_, err := h.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	r := NewRunner(Options{Workers: 1})
	firstRunning := make(chan struct{})
	releaseFirst := make(chan struct{})
	first := r.Submit(context.Background(), Task{
		Run: func(ctx context.Context, _ []byte, _ func(float64)) ([]byte, error) {
			close(firstRunning)
			<-releaseFirst
			return []byte("1"), nil
		},
	})
	<-firstRunning
	secondStarted := make(chan struct{})
	second := r.Submit(context.Background(), Task{
		Run: func(ctx context.Context, _ []byte, _ func(float64)) ([]byte, error) {
			close(secondStarted)
			return []byte("2"), nil
		},
	})
	select {
	case <-secondStarted:
		t.Fatal("second task started while the only worker was busy")
	case <-time.After(30 * time.Millisecond):
	}
	close(releaseFirst)
	_, err := first.Wait(context.Background())
	require.NoError(t, err)
	out, err := second.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), out)
}

func TestHubFansOutProgress(t *testing.T) {
	hub := NewHub()
	early, releaseEarly := hub.Subscribe("job")
	defer releaseEarly()

	r := NewRunner(Options{Hub: hub})
	h := r.Submit(context.Background(), Task{
		ID: "job",
		Run: func(ctx context.Context, _ []byte, progress func(float64)) ([]byte, error) {
			progress(0.25)
			progress(0.2)
			progress(0.75)
			return nil, nil
		},
	})
	_, err := h.Wait(context.Background())
	require.NoError(t, err)

	var got []float64
	for p := range early {
		got = append(got, p)
	}
	assert.Equal(t, []float64{0.25, 0.75}, got)

	late, _ := hub.Subscribe("job")
	_, open := <-late
	assert.False(t, open, "subscription after finish is closed")
}
