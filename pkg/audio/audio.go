// Package audio holds the upload rules shared by the server and the client:
// the size ceiling, the MIME allow-list and blob object naming.
package audio

import (
	"fmt"
	"mime"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadBytes is the hard ceiling for a single upload. The client pre-check
// and the server enforcement both read this value.
const MaxUploadBytes int64 = 10 * 1024 * 1024

// allowedMimeTypes is the fixed upload allow-list.
var allowedMimeTypes = map[string]struct{}{
	"audio/wav":   {},
	"audio/x-wav": {},
	"audio/mpeg":  {},
	"audio/mp3":   {},
	"audio/mp4":   {},
	"audio/m4a":   {},
	"audio/x-m4a": {},
	"audio/ogg":   {},
	"audio/webm":  {},
	"audio/flac":  {},
	"audio/3gpp":  {},
	"audio/3gpp2": {},
	"audio/aac":   {},
	"audio/x-caf": {},
}

// Sniffers report container types under video/* for some audio-only files.
var sniffAliases = map[string]string{
	"video/webm":   "audio/webm",
	"video/mp4":    "audio/mp4",
	"video/3gpp":   "audio/3gpp",
	"video/3gpp2":  "audio/3gpp2",
	"audio/x-flac": "audio/flac",
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// IsAllowedMimeType reports whether mimeType is on the upload allow-list.
func IsAllowedMimeType(mimeType string) bool {
	_, ok := allowedMimeTypes[NormalizeMimeType(mimeType)]
	return ok
}

// AllowedMimeTypes returns the allow-list, sorted.
func AllowedMimeTypes() []string {
	out := make([]string, 0, len(allowedMimeTypes))
	for m := range allowedMimeTypes {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// NormalizeMimeType strips parameters and lowercases a Content-Type value.
func NormalizeMimeType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}
	return strings.ToLower(mediaType)
}

// DetectMimeType returns the declared type when it is meaningful, otherwise
// sniffs the payload.
func DetectMimeType(declared string, data []byte) string {
	declared = NormalizeMimeType(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	detected := NormalizeMimeType(mimetype.Detect(data).String())
	if alias, ok := sniffAliases[detected]; ok {
		return alias
	}
	return detected
}

// SanitizeFileName replaces anything outside [a-zA-Z0-9.-] with an underscore.
func SanitizeFileName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// ObjectName builds the collision-resistant blob name used for uploads:
// the upload time in unix milliseconds followed by the sanitized original name.
func ObjectName(now time.Time, originalName string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeFileName(originalName))
}

// TooLarge reports whether size exceeds MaxUploadBytes.
func TooLarge(size int64) bool {
	return size > MaxUploadBytes
}
