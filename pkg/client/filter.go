package client

import (
	"strings"

	"github.com/samber/lo"

	"github.com/killallgit/lectra-api/internal/models"
)

// FilterLocal narrows already-loaded rows by a case-insensitive substring of
// their text. A blank query returns items unchanged; otherwise the query is
// matched as typed, surrounding spaces included. It never calls the API.
func FilterLocal(items []models.Transcription, query string) []models.Transcription {
	if strings.TrimSpace(query) == "" {
		return items
	}
	needle := strings.ToLower(query)
	return lo.Filter(items, func(t models.Transcription, _ int) bool {
		return strings.Contains(strings.ToLower(t.TranscriptionText), needle)
	})
}

// IDs returns the ids of items in order
func IDs(items []models.Transcription) []string {
	return lo.Map(items, func(t models.Transcription, _ int) string { return t.ID })
}
