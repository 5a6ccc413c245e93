package engine

import (
	"errors"
	"fmt"
)

// TaskError wraps a failure raised while running a loop task. The loop logs
// it and moves on to the next task.
type TaskError struct {
	// Code identifies the error category.
	Code TaskErrorCode

	// Task is the failing task's name.
	Task string

	// Message is a human-readable description.
	Message string

	// Err is the task's own error, nil for panics.
	Err error
}

// TaskErrorCode categorizes task errors.
type TaskErrorCode string

const (
	// ErrCodeTaskFailed indicates the task returned an error.
	ErrCodeTaskFailed TaskErrorCode = "TASK_FAILED"

	// ErrCodeTaskPanic indicates the task panicked.
	ErrCodeTaskPanic TaskErrorCode = "TASK_PANIC"
)

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s (task=%s)", e.Code, e.Message, e.Task)
}

// Unwrap returns the task's own error.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsTaskPanic returns true if err is a recovered task panic.
// Uses errors.As to handle wrapped errors.
func IsTaskPanic(err error) bool {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Code == ErrCodeTaskPanic
	}
	return false
}
