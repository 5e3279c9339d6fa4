package recognition

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	Google   GoogleConfig
	Whisper  WhisperConfig
}

// New creates the recognizer named by cfg.Provider. Google is the default.
func New(ctx context.Context, cfg Config) (Recognizer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "google"
		log.Printf("[INFO] Recognition provider not set, defaulting to 'google'")
	}

	switch provider {
	case "google":
		return NewGoogleRecognizer(ctx, cfg.Google)
	case "whisper", "openai":
		return NewWhisperRecognizer(cfg.Whisper)
	default:
		return nil, fmt.Errorf("unsupported recognition provider: %s (supported: google, whisper)", cfg.Provider)
	}
}
