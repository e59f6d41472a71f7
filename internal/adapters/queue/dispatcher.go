// Package queue provides the in-process task dispatcher that runs the
// asynchronous analysis phase of the liveness and document flows.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"trust-service/internal/core/ports"
)

// Dispatcher is a buffered-channel ports.TaskQueue with a fixed worker
// pool. Handlers are registered per task kind before Run is called.
type Dispatcher struct {
	tasks    chan ports.Task
	handlers map[ports.TaskKind]ports.TaskHandler
	workers  int
	log      zerolog.Logger
	mu       sync.RWMutex
}

func NewDispatcher(workers, buffer int, baseLogger *zerolog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		tasks:    make(chan ports.Task, buffer),
		handlers: make(map[ports.TaskKind]ports.TaskHandler),
		workers:  workers,
		log:      baseLogger.With().Str("component", "task_dispatcher").Logger(),
	}
}

// Register binds a handler to a task kind. Must happen before Run.
func (d *Dispatcher) Register(kind ports.TaskKind, handler ports.TaskHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = handler
	d.log.Info().Str("kind", string(kind)).Msg("Task handler registered")
}

// Enqueue accepts a task unless the buffer is full or the context ended.
func (d *Dispatcher) Enqueue(ctx context.Context, task ports.Task) error {
	select {
	case d.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("task queue full, dropping %s for %s", task.Kind, task.RecordID)
	}
}

// Run starts the worker pool and blocks until the context ends and all
// workers have drained their current task.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info().Int("workers", d.workers).Msg("Task dispatcher started")

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.worker(ctx, id)
		}(i)
	}
	wg.Wait()
	d.log.Info().Msg("Task dispatcher stopped")
	return ctx.Err()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-d.tasks:
			d.process(ctx, id, task)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID int, task ports.Task) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Interface("panic", r).
				Str("kind", string(task.Kind)).
				Str("record_id", task.RecordID).
				Msg("Task handler panicked")
		}
	}()

	d.mu.RLock()
	handler, ok := d.handlers[task.Kind]
	d.mu.RUnlock()
	if !ok {
		d.log.Error().Str("kind", string(task.Kind)).Msg("No handler for task kind")
		return
	}

	if err := handler(ctx, task.RecordID); err != nil {
		d.log.Error().
			Err(err).
			Int("worker", workerID).
			Str("kind", string(task.Kind)).
			Str("record_id", task.RecordID).
			Msg("Task failed")
	}
}
