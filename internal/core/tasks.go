package core

import (
	"context"
	"time"
)

// Task is a blocking computation executed on a worker slot.
type Task func(ctx context.Context) ([]byte, error)

// TaskResult is the outcome delivered to a TaskCallback.
type TaskResult struct {
	Artifact []byte
	Err      error
	// Waited is how long the task sat in the queue before a worker picked it up.
	Waited time.Duration
	// Duration is how long the task ran.
	Duration time.Duration
}

// TaskCallback receives the result of a Task. It runs on the worker goroutine.
type TaskCallback func(TaskResult)

// TaskRunner accepts tasks for asynchronous execution.
type TaskRunner interface {
	Submit(task Task, done TaskCallback) error
}
