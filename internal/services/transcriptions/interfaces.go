package transcriptions

import (
	"context"

	"github.com/killallgit/lectra-api/internal/models"
)

// Repository defines the persistence contract for transcriptions.
// Every operation except HardDelete and ReferencesAudio sees active rows only.
type Repository interface {
	// Create stores a new transcription, assigning its id and word count
	Create(ctx context.Context, transcription *models.Transcription) error

	// FindByID returns the active row or ErrNotFound
	FindByID(ctx context.Context, id string) (*models.Transcription, error)

	// FindAll returns a page of active rows, newest first
	FindAll(ctx context.Context, limit, offset int) (*Page, error)

	// Update applies a partial update and returns the stored row
	Update(ctx context.Context, id string, patch Patch) (*models.Transcription, error)

	// SoftDelete marks the row deleted. A second call returns ErrNotFound.
	SoftDelete(ctx context.Context, id string) error

	// HardDelete physically removes the row whether or not it is soft-deleted
	HardDelete(ctx context.Context, id string) error

	// Search matches term case-insensitively against the transcription text
	Search(ctx context.Context, term string, limit, offset int) (*Page, error)

	// ReferencesAudio reports whether any row, deleted or not, points at url
	ReferencesAudio(ctx context.Context, url string) (bool, error)
}

// Page is one window of an offset-paginated listing.
type Page struct {
	Rows  []models.Transcription
	Total int64
}

// HasMore reports whether rows exist beyond this page.
func (p *Page) HasMore(offset int) bool {
	return int64(offset+len(p.Rows)) < p.Total
}

// Patch carries the fields of a partial update. Nil fields are left untouched.
type Patch struct {
	TranscriptionText *string
	LanguageCode      *string
	Status            *string
	ConfidenceScore   *float64
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.TranscriptionText == nil && p.LanguageCode == nil && p.Status == nil && p.ConfidenceScore == nil
}
