package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTask is returned when the registry does not know a task id.
	ErrUnknownTask = errors.New("unknown task")

	// ErrTaskBusy is returned under the reject policy when the task is
	// already running.
	ErrTaskBusy = errors.New("task is already running")

	// ErrAborted is the cancellation cause of an explicitly cancelled run.
	ErrAborted = errors.New("aborted")

	// ErrTimeout is the cancellation cause of a run that hit its deadline.
	ErrTimeout = errors.New("timeout")
)

// ValidationError reports caller misuse. Run returns it instead of a Result.
type ValidationError struct {
	TaskID string
	Err    error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("task %q: %v", e.TaskID, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ExecutionError is a failure inside a step.
type ExecutionError struct {
	TaskID string
	Step   string
	Index  int
	Err    error

	// Panicked is set when the step panicked rather than returning Err.
	Panicked bool
	Stack    string
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %s step %d (%s): %v", e.TaskID, e.Index+1, e.Step, e.Err)
}

// Unwrap returns the step's error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
