package progress

import (
	"errors"
	"fmt"
)

var (
	ErrLessonNotFound = errors.New("lesson not found")
	ErrPhaseNotFound  = errors.New("phase not found")
	// ErrPhaseLocked means the caller tried to act on a phase whose
	// predecessor is not completed yet.
	ErrPhaseLocked = errors.New("previous phase incomplete")
)

// StorageError wraps a persistence failure without swallowing the driver
// message. Code carries the SQLSTATE (e.g. "23503" for a foreign-key
// violation) when the driver reported one.
type StorageError struct {
	Op   string
	Code string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Err, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
