package ffmpeg

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrFFprobeNotFound = errors.New("ffprobe binary not found")
	ErrNoDuration      = errors.New("could not determine audio duration")
)

// ProcessingError represents an error while probing audio
type ProcessingError struct {
	Operation string // The operation that failed (e.g., "metadata_extraction")
	Err       error  // The underlying error
	Stderr    string // stderr output from ffprobe
}

func (e *ProcessingError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("ffprobe %s failed: %v (stderr: %s)", e.Operation, e.Err, e.Stderr)
	}
	return fmt.Sprintf("ffprobe %s failed: %v", e.Operation, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewProcessingError creates a new ProcessingError
func NewProcessingError(operation string, err error, stderr string) *ProcessingError {
	return &ProcessingError{
		Operation: operation,
		Err:       err,
		Stderr:    stderr,
	}
}
