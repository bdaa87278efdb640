package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateCapture matches any *DuplicateCaptureError.
	ErrDuplicateCapture = errors.New("capture: already started")

	// ErrEmptyProcessID is returned by Start for an empty process id.
	ErrEmptyProcessID = errors.New("capture: process id is required")
)

// DuplicateCaptureError is returned by Start when a capture for the same
// process id is already active. The active capture is left untouched.
type DuplicateCaptureError struct {
	ProcessID string
}

func (e *DuplicateCaptureError) Error() string {
	return fmt.Sprintf("an audio capture with process id of %s is already started", e.ProcessID)
}

func (e *DuplicateCaptureError) Is(target error) bool {
	return target == ErrDuplicateCapture
}
