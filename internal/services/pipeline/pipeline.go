package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/killallgit/lectra-api/internal/languages"
	"github.com/killallgit/lectra-api/internal/models"
	"github.com/killallgit/lectra-api/internal/services/blobstore"
	"github.com/killallgit/lectra-api/internal/services/recognition"
	"github.com/killallgit/lectra-api/internal/services/transcriptions"
	"github.com/killallgit/lectra-api/pkg/audio"
)

const (
	// NoSpeechMessage accompanies an empty recognition result
	NoSpeechMessage = "No speech detected in the audio file"

	// PersistenceWarning is returned when the row could not be stored
	PersistenceWarning = "Transcription succeeded but could not be saved to database"

	// DefaultLongRunningThreshold is the payload size above which the
	// long-running recognition path is used
	DefaultLongRunningThreshold = 1024 * 1024
)

// ValidationError is a client error detected before any side effect.
type ValidationError struct {
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(status int, format string, args ...any) *ValidationError {
	return &ValidationError{StatusCode: status, Message: fmt.Sprintf(format, args...)}
}

// Upload is one audio file submitted for transcription.
type Upload struct {
	FileName     string
	MimeType     string
	Data         []byte
	LanguageCode string
}

// Metadata describes the upload in the response.
type Metadata struct {
	OriginalName string     `json:"originalName"`
	MimeType     string     `json:"mimeType"`
	FileSize     int64      `json:"fileSize"`
	LanguageCode string     `json:"languageCode"`
	Duration     *float64   `json:"duration,omitempty"`
	WordCount    *int       `json:"wordCount,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// Result is the outcome of a successful run. ID is empty when nothing was
// persisted; Warning is set when persistence failed after recognition.
type Result struct {
	Transcription string
	Message       string
	Warning       string
	ID            string
	AudioURL      *string
	Metadata      *Metadata
}

// Persisted reports whether a row was created.
func (r *Result) Persisted() bool {
	return r.ID != ""
}

// DurationProber measures an audio payload in seconds
type DurationProber interface {
	Duration(ctx context.Context, data []byte) (float64, error)
}

// Service runs the upload-to-record pipeline. Steps run strictly in order
// and none is retried.
type Service struct {
	recognizer    recognition.Recognizer
	blobs         blobstore.Store
	store         transcriptions.Repository
	prober        DurationProber
	longThreshold int
	now           func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithLongRunningThreshold sets the payload size in bytes above which
// TranscribeLong is used
func WithLongRunningThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.longThreshold = n
		}
	}
}

// WithDurationProber records audio_duration_seconds when probing succeeds
func WithDurationProber(p DurationProber) Option {
	return func(s *Service) {
		s.prober = p
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a pipeline. blobs and store may be nil, in which case
// the matching step degrades the same way a failure would.
func NewService(recognizer recognition.Recognizer, blobs blobstore.Store, store transcriptions.Repository, opts ...Option) *Service {
	s := &Service{
		recognizer:    recognizer,
		blobs:         blobs,
		store:         store,
		longThreshold: DefaultLongRunningThreshold,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks an upload without touching any collaborator.
func (s *Service) Validate(u *Upload) error {
	if u == nil || u.FileName == "" && len(u.Data) == 0 {
		return invalid(http.StatusBadRequest, "No audio file uploaded")
	}
	if len(u.Data) == 0 {
		return invalid(http.StatusBadRequest, "Uploaded file is empty")
	}
	if audio.TooLarge(int64(len(u.Data))) {
		return invalid(http.StatusRequestEntityTooLarge, "File too large. Maximum size is %dMB", audio.MaxUploadBytes/(1024*1024))
	}
	if !audio.IsAllowedMimeType(u.MimeType) {
		return invalid(http.StatusBadRequest, "Invalid file type. Allowed types: %s", strings.Join(audio.AllowedMimeTypes(), ", "))
	}
	if !languages.IsSupported(u.LanguageCode) {
		return invalid(http.StatusBadRequest, "Invalid language code: %s", u.LanguageCode)
	}
	return nil
}

// Process validates, recognizes, stores the blob and the row, and shapes the result.
func (s *Service) Process(ctx context.Context, u *Upload) (*Result, error) {
	if u != nil && u.LanguageCode == "" {
		u.LanguageCode = languages.Default
	}
	if err := s.Validate(u); err != nil {
		return nil, err
	}
	u.MimeType = audio.NormalizeMimeType(u.MimeType)

	log.Printf("[INFO] Transcribing %s (%d bytes, %s, %s) with %s",
		u.FileName, len(u.Data), u.MimeType, u.LanguageCode, s.recognizer.Name())

	text, err := s.recognize(ctx, u)
	if err != nil {
		log.Printf("[ERROR] Recognition failed for %s: %v", u.FileName, err)
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		log.Printf("[INFO] No speech detected in %s", u.FileName)
		return &Result{Transcription: "", Message: NoSpeechMessage}, nil
	}

	audioURL := s.uploadBlob(ctx, u)
	duration := s.probeDuration(ctx, u)

	size := int64(len(u.Data))
	mimeType := u.MimeType
	row := &models.Transcription{
		AudioFileName:        u.FileName,
		AudioFileURL:         audioURL,
		AudioMimeType:        &mimeType,
		AudioDurationSeconds: duration,
		AudioFileSizeBytes:   &size,
		TranscriptionText:    text,
		LanguageCode:         u.LanguageCode,
		Status:               models.StatusCompleted,
	}

	metadata := &Metadata{
		OriginalName: u.FileName,
		MimeType:     u.MimeType,
		FileSize:     size,
		LanguageCode: u.LanguageCode,
		Duration:     duration,
	}

	if err := s.createRow(ctx, row); err != nil {
		log.Printf("[WARN] Transcription of %s not persisted: %v", u.FileName, err)
		return &Result{
			Transcription: text,
			Warning:       PersistenceWarning,
			AudioURL:      audioURL,
			Metadata:      metadata,
		}, nil
	}

	createdAt := row.CreatedAt
	metadata.WordCount = row.WordCount
	metadata.CreatedAt = &createdAt

	log.Printf("[INFO] Stored transcription %s (%d words)", row.ID, derefInt(row.WordCount))
	return &Result{
		Transcription: text,
		ID:            row.ID,
		AudioURL:      row.AudioFileURL,
		Metadata:      metadata,
	}, nil
}

func (s *Service) recognize(ctx context.Context, u *Upload) (string, error) {
	var (
		text string
		err  error
	)
	if len(u.Data) > s.longThreshold {
		text, err = s.recognizer.TranscribeLong(ctx, u.Data, u.MimeType, u.LanguageCode)
	} else {
		text, err = s.recognizer.Transcribe(ctx, u.Data, u.MimeType, u.LanguageCode)
	}
	if err != nil && !errors.Is(err, recognition.ErrProvider) {
		err = &recognition.ProviderError{Provider: s.recognizer.Name(), Err: err}
	}
	return text, err
}

// uploadBlob returns nil when the blob could not be stored.
func (s *Service) uploadBlob(ctx context.Context, u *Upload) *string {
	if s.blobs == nil {
		return nil
	}

	name := audio.ObjectName(s.now(), u.FileName)
	url, err := s.blobs.Upload(ctx, name, u.Data, u.MimeType)
	if err != nil {
		log.Printf("[WARN] Audio upload failed for %s, continuing without audio url: %v", name, err)
		return nil
	}
	return &url
}

// probeDuration is best effort; nil means unknown.
func (s *Service) probeDuration(ctx context.Context, u *Upload) *float64 {
	if s.prober == nil {
		return nil
	}
	d, err := s.prober.Duration(ctx, u.Data)
	if err != nil {
		log.Printf("[DEBUG] Could not probe duration of %s: %v", u.FileName, err)
		return nil
	}
	return &d
}

func (s *Service) createRow(ctx context.Context, row *models.Transcription) error {
	if s.store == nil {
		return errors.New("transcript store not configured")
	}
	return s.store.Create(ctx, row)
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
