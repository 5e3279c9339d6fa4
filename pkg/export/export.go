// Package export renders transcriptions for sharing outside the app.
package export

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/killallgit/lectra-api/internal/models"
)

const (
	ruleWidth    = 60
	maxBaseName  = 50
	fallbackBase = "transcription"
)

var unsafeBaseChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Text renders the plain-text export: header block, body and footer
func Text(t models.Transcription) string {
	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)

	lines := []string{
		heavy,
		"LECTRA TRANSCRIPTION",
		heavy,
		"",
		"File: " + t.AudioFileName,
		"Date: " + FormatDateTime(t.CreatedAt),
		"Language: " + t.LanguageCode,
	}
	if t.WordCount != nil && *t.WordCount > 0 {
		lines = append(lines, fmt.Sprintf("Word Count: %d", *t.WordCount))
	}
	lines = append(lines,
		"",
		light,
		"TRANSCRIPTION",
		light,
		"",
		t.TranscriptionText,
		"",
		heavy,
		"Generated with Lectra AI Note Maker",
		heavy,
	)
	return strings.Join(lines, "\n")
}

// WriteText writes the plain-text export to w
func WriteText(w io.Writer, t models.Transcription) error {
	_, err := io.WriteString(w, Text(t))
	return err
}

// FileName builds "<base>_<unix millis>.<ext>" where base is the audio file
// name without extension, restricted to [a-zA-Z0-9_-] and 50 characters.
func FileName(t models.Transcription, ext string, now time.Time) string {
	base := strings.TrimSuffix(t.AudioFileName, filepath.Ext(t.AudioFileName))
	base = unsafeBaseChars.ReplaceAllString(base, "_")
	if len(base) > maxBaseName {
		base = base[:maxBaseName]
	}
	if base == "" {
		base = fallbackBase
	}
	return fmt.Sprintf("%s_%d.%s", base, now.UnixMilli(), strings.TrimPrefix(ext, "."))
}

// FormatDuration renders seconds as M:SS or H:MM:SS
func FormatDuration(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) {
		return "0:00"
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatFileSize renders bytes in B, KB, MB or GB
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	sizes := []string{"B", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	if i == 0 {
		return fmt.Sprintf("%.0f %s", value, sizes[i])
	}
	return fmt.Sprintf("%.1f %s", value, sizes[i])
}

// FormatAbsoluteDate renders e.g. "Jan 15, 2025"
func FormatAbsoluteDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// FormatDateTime renders e.g. "Jan 15, 2025 at 3:30 PM"
func FormatDateTime(t time.Time) string {
	return t.Format("Jan 2, 2006") + " at " + t.Format("3:04 PM")
}

// FormatRelative renders "Just now", "N minutes ago" and so on up to a
// week, then falls back to the absolute date.
func FormatRelative(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return plural(int(diff/time.Minute), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff/time.Hour), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff/(24*time.Hour)), "day") + " ago"
	default:
		return FormatAbsoluteDate(t)
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
