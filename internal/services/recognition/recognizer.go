package recognition

//go:generate mockgen -source=recognizer.go -destination=mocks/mock_recognizer.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/killallgit/lectra-api/pkg/audio"
)

// Recognizer turns audio bytes into text. An empty string with a nil error
// means no speech was detected.
type Recognizer interface {
	// Transcribe runs synchronous recognition
	Transcribe(ctx context.Context, data []byte, mimeType, languageCode string) (string, error)

	// TranscribeLong runs a long-running recognition and waits for it to finish
	TranscribeLong(ctx context.Context, data []byte, mimeType, languageCode string) (string, error)

	// Name identifies the provider in logs
	Name() string
}

// Encoding is a provider audio encoding name.
type Encoding string

const (
	EncodingLinear16 Encoding = "LINEAR16"
	EncodingMP3      Encoding = "MP3"
	EncodingOggOpus  Encoding = "OGG_OPUS"
	EncodingWebmOpus Encoding = "WEBM_OPUS"
	EncodingFLAC     Encoding = "FLAC"
)

var encodings = map[string]Encoding{
	"audio/wav":   EncodingLinear16,
	"audio/x-wav": EncodingLinear16,
	"audio/mpeg":  EncodingMP3,
	"audio/mp3":   EncodingMP3,
	"audio/mp4":   EncodingMP3,
	"audio/m4a":   EncodingMP3,
	"audio/ogg":   EncodingOggOpus,
	"audio/webm":  EncodingWebmOpus,
	"audio/flac":  EncodingFLAC,
}

// EncodingFor maps a MIME type to its recognizer encoding. Unknown types
// fall back to LINEAR16 instead of failing.
func EncodingFor(mimeType string) Encoding {
	if enc, ok := encodings[audio.NormalizeMimeType(mimeType)]; ok {
		return enc
	}
	return EncodingLinear16
}

// ErrProvider is the sentinel wrapped by every ProviderError.
var ErrProvider = errors.New("recognition provider error")

// ProviderError wraps any transport or provider failure.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s recognition failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s recognition failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

func providerError(provider string, status int, err error) error {
	return &ProviderError{Provider: provider, StatusCode: status, Err: err}
}

// JoinTranscripts joins the top alternative of every result with newlines
// and trims the outcome.
func JoinTranscripts(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
