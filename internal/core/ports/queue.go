package ports

import "context"

// TaskKind identifies which asynchronous analysis a task drives.
type TaskKind string

const (
	TaskLivenessAnalysis TaskKind = "liveness_analysis"
	TaskDocumentCheck    TaskKind = "document_check"
)

// Task is one unit of deferred work, keyed by the record it mutates.
type Task struct {
	Kind     TaskKind
	RecordID string
}

// TaskHandler processes one task. Errors are logged by the worker; the
// handler is responsible for leaving the record in a terminal state.
type TaskHandler func(ctx context.Context, recordID string) error

// TaskQueue decouples the synchronous validate+persist phase from the
// provider round-trip. Enqueue returns as soon as the task is accepted;
// a worker picks it up and invokes the registered handler.
type TaskQueue interface {
	Enqueue(ctx context.Context, task Task) error
}
