package recognition

import (
	"bytes"
	"context"
	"errors"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/killallgit/lectra-api/internal/languages"
	"github.com/killallgit/lectra-api/pkg/audio"
)

// WhisperConfig configures the OpenAI Whisper provider.
type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// WhisperRecognizer transcribes through OpenAI's audio API.
type WhisperRecognizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewWhisperRecognizer creates a Whisper recognizer
func NewWhisperRecognizer(cfg WhisperConfig) (*WhisperRecognizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("whisper api key is not configured")
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &WhisperRecognizer{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Name returns the provider name
func (w *WhisperRecognizer) Name() string {
	return "whisper"
}

// Transcribe sends the audio to Whisper
func (w *WhisperRecognizer) Transcribe(ctx context.Context, data []byte, mimeType, languageCode string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "audio" + extensionFor(mimeType),
		Reader:   bytes.NewReader(data),
		Language: languages.BaseLanguage(languageCode),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", providerError(w.Name(), apiErr.HTTPStatusCode, err)
		}
		return "", providerError(w.Name(), 0, err)
	}

	log.Printf("[DEBUG] Whisper returned %d characters", len(resp.Text))
	return JoinTranscripts([]string{resp.Text}), nil
}

// TranscribeLong uses the same call; Whisper has no long-running variant.
func (w *WhisperRecognizer) TranscribeLong(ctx context.Context, data []byte, mimeType, languageCode string) (string, error) {
	return w.Transcribe(ctx, data, mimeType, languageCode)
}

// Whisper infers the container from the file name.
var whisperExtensions = map[string]string{
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/mp4":   ".m4a",
	"audio/m4a":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/aac":   ".m4a",
	"audio/ogg":   ".ogg",
	"audio/webm":  ".webm",
	"audio/flac":  ".flac",
}

func extensionFor(mimeType string) string {
	if ext, ok := whisperExtensions[audio.NormalizeMimeType(mimeType)]; ok {
		return ext
	}
	return ".wav"
}
