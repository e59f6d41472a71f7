package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trust-service/internal/core/ports"
)

var testLogger = zerolog.Nop()

func TestDispatcher_ProcessesEnqueuedTasks(t *testing.T) {
	d := NewDispatcher(2, 16, &testLogger)

	var mu sync.Mutex
	seen := map[string]bool{}
	done := make(chan struct{}, 3)
	d.Register(ports.TaskLivenessAnalysis, func(ctx context.Context, recordID string) error {
		mu.Lock()
		seen[recordID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, d.Enqueue(ctx, ports.Task{Kind: ports.TaskLivenessAnalysis, RecordID: id}))
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("task not processed")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 3)
}

func TestDispatcher_FullBufferRejects(t *testing.T) {
	d := NewDispatcher(1, 1, &testLogger)
	ctx := context.Background()

	// No workers running: the single slot fills and the next enqueue fails.
	require.NoError(t, d.Enqueue(ctx, ports.Task{Kind: ports.TaskDocumentCheck, RecordID: "x"}))
	err := d.Enqueue(ctx, ports.Task{Kind: ports.TaskDocumentCheck, RecordID: "y"})
	assert.ErrorContains(t, err, "queue full")
}

func TestDispatcher_SurvivesHandlerFailures(t *testing.T) {
	d := NewDispatcher(1, 16, &testLogger)

	done := make(chan string, 3)
	d.Register(ports.TaskDocumentCheck, func(ctx context.Context, recordID string) error {
		switch recordID {
		case "boom":
			done <- recordID
			panic("handler bug")
		case "fail":
			done <- recordID
			return errors.New("provider down")
		}
		done <- recordID
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	for _, id := range []string{"boom", "fail", "ok"} {
		require.NoError(t, d.Enqueue(ctx, ports.Task{Kind: ports.TaskDocumentCheck, RecordID: id}))
	}

	var processed []string
	for i := 0; i < 3; i++ {
		select {
		case id := <-done:
			processed = append(processed, id)
		case <-time.After(2 * time.Second):
			t.Fatalf("worker died after %v", processed)
		}
	}
	assert.Equal(t, "ok", processed[len(processed)-1], "worker keeps going after panics and errors")
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	d := NewDispatcher(2, 4, &testLogger)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
