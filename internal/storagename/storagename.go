// Package storagename is the single point of filename normalization for
// uploaded images and dataset folder names.
//
// Storage names have the form <UTC-timestamp>_<sanitized>.<ext>. The
// sanitizer decomposes unicode, strips diacritics and path separators,
// and keeps only [A-Za-z0-9_.-].
package storagename

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ImageExtensions are the accepted upload image extensions (lowercase,
// without dot).
var ImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// VideoExtensions are the accepted video extensions for frame extraction.
var VideoExtensions = map[string]struct{}{
	"mp4": {},
	"avi": {},
	"mov": {},
	"mkv": {},
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Sanitize normalizes name into a filesystem-safe token. Returns an empty
// string when nothing safe remains.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	// Drop any directory component the client sent along.
	name = filepath.Base(filepath.ToSlash(name))

	if folded, _, err := transform.String(stripMarks, name); err == nil {
		name = folded
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}

	out := strings.Trim(b.String(), ".")
	if out == "" || out == "_" || strings.Contains(out, "..") {
		return ""
	}
	return out
}

// ForUpload builds a collision-free storage name for an uploaded file.
// The extension must be one of allowed; comparison is case-insensitive.
func ForUpload(originalName string, now time.Time, allowed map[string]struct{}) (string, error) {
	sanitized := Sanitize(originalName)
	if sanitized == "" {
		return "", fmt.Errorf("filename %q has no safe characters", originalName)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(sanitized), "."))
	if _, ok := allowed[ext]; !ok {
		return "", fmt.Errorf("unsupported extension %q", ext)
	}

	stem := strings.TrimSuffix(sanitized, filepath.Ext(sanitized))
	return fmt.Sprintf("%s_%s.%s", now.UTC().Format("20060102_150405"), stem, ext), nil
}

// Stem returns the filename without directory or extension.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsImage reports whether name carries a supported image extension.
func IsImage(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := ImageExtensions[ext]
	return ok
}

// IsVideo reports whether name carries a supported video extension.
func IsVideo(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := VideoExtensions[ext]
	return ok
}
