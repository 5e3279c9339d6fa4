package types

import (
	"time"

	"github.com/killallgit/lectra-api/internal/database"
	"github.com/killallgit/lectra-api/internal/services/pipeline"
	"github.com/killallgit/lectra-api/internal/services/transcriptions"
	"github.com/killallgit/lectra-api/internal/supabase"
)

// DefaultTranscribeTimeout bounds one upload-to-record run
const DefaultTranscribeTimeout = 3 * time.Minute

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB             *database.DB
	Supabase       *supabase.Handle
	Transcriptions transcriptions.Repository
	Pipeline       *pipeline.Service

	// AudioDir is served under /audio when the filesystem blob store is used
	AudioDir string

	TranscribeTimeout time.Duration
}

// TranscribeTimeoutOrDefault returns the configured pipeline timeout
func (d *Dependencies) TranscribeTimeoutOrDefault() time.Duration {
	if d == nil || d.TranscribeTimeout <= 0 {
		return DefaultTranscribeTimeout
	}
	return d.TranscribeTimeout
}
