package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// StatusCompleted is the status written for every transcription the pipeline persists.
// Status is an advisory tag and is not enforced as a state machine.
const StatusCompleted = "completed"

// Transcription is a recognized voice note and the reference to its audio blob.
type Transcription struct {
	ID                   string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	AudioFileName        string         `gorm:"not null" json:"audio_file_name"`
	AudioFileURL         *string        `gorm:"index" json:"audio_file_url"`
	AudioMimeType        *string        `json:"audio_mime_type"`
	AudioDurationSeconds *float64       `json:"audio_duration_seconds"`
	AudioFileSizeBytes   *int64         `json:"audio_file_size_bytes"`
	TranscriptionText    string         `gorm:"type:text;not null" json:"transcription_text"`
	LanguageCode         string         `gorm:"type:varchar(10);not null" json:"language_code"`
	Status               string         `gorm:"type:varchar(32);not null;default:completed" json:"status"`
	CreatedAt            time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"deleted_at"`
	WordCount            *int           `json:"word_count"`
	ConfidenceScore      *float64       `json:"confidence_score"`
}

// TableName specifies the table name for Transcription
func (Transcription) TableName() string {
	return "transcriptions"
}

// CountWords counts whitespace-delimited, non-empty tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// RefreshWordCount recomputes WordCount from TranscriptionText.
func (t *Transcription) RefreshWordCount() {
	n := CountWords(t.TranscriptionText)
	t.WordCount = &n
}
