package review

import (
	"errors"
	"fmt"

	"github.com/example/studydeck/internal/spaced_repetition"
)

var (
	// ErrInvalidQuality is returned when a grade is outside 0-5. Nothing is written.
	ErrInvalidQuality = spaced_repetition.ErrInvalidQuality
	// ErrItemNotFound is returned when grading an id that does not exist
	ErrItemNotFound = errors.New("review item not found")
	// ErrUserNotFound is returned when the grading user does not exist. Retrying cannot help.
	ErrUserNotFound = errors.New("user not found")
	// ErrDueDateOutOfRange is returned when an item's next interval would pass the last storable date.
	// The item keeps its current schedule.
	ErrDueDateOutOfRange = spaced_repetition.ErrDueDateOutOfRange
	// ErrStorage marks failures of the persistence layer. Such errors come wrapped in *StorageError.
	ErrStorage = errors.New("storage failure")
)

// StorageError reports a failed read or write. The item's prior schedule is intact
// and the same call may be repeated.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorage, e.Err)
}

// Unwrap lets errors.Is match both ErrStorage and the underlying cause
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// Retryable always reports true. Retry policy is left to the caller.
func (e *StorageError) Retryable() bool {
	return true
}
