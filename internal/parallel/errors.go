package parallel

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned before any worker starts when the run
	// configuration cannot be satisfied.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrWorkerStartup is returned when an execution unit could not be created.
	ErrWorkerStartup = errors.New("worker startup failed")

	// ErrTimeout is returned when the per-run deadline passes.
	ErrTimeout = errors.New("run timed out")
)

// TaskError reports the failure of a single task.
type TaskError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d failed: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// TaskIndex returns the input index of the failed task if err is a TaskError.
func TaskIndex(err error) (int, bool) {
	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		return taskErr.Index, true
	}
	return 0, false
}

// timeoutError wraps the context error so callers can match either ErrTimeout
// or context.DeadlineExceeded.
type timeoutError struct {
	cause error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("%s: %v", ErrTimeout, e.cause)
}

func (e *timeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *timeoutError) Unwrap() error {
	return e.cause
}

// contextError converts a done context into the harness error for it.
func contextError(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &timeoutError{cause: err}
	}
	return err
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
