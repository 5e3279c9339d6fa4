package transcriptions

import "errors"

var (
	// ErrNotFound is returned when no active row matches the id
	ErrNotFound = errors.New("transcription not found")

	// ErrNilTranscription is returned by Create when given nil
	ErrNilTranscription = errors.New("transcription cannot be nil")
)
