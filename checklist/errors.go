package checklist

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references a task that is
// absent from the collection it is expected in — already rejected,
// deleted, completed by the counterpart, or never created.
var ErrNotFound = errors.New("task not found")

// notFound wraps ErrNotFound with the offending task ID.
func notFound(taskID string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, taskID)
}

// ValidationError reports malformed input to a store operation. It is
// surfaced to the caller and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
