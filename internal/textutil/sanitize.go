package textutil

import (
	"path/filepath"
	"strings"
	"unicode"
)

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes name safe to use as a single path segment or a
// Content-Disposition filename. Path separators become dashes, shell and
// quoting characters are dropped, and control characters are removed.
func SanitizeFileName(name string) string {
	name = fileNameReplacer.Replace(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return strings.Trim(strings.TrimSpace(name), ".")
}

// Stem returns the file name without directory or extension.
func Stem(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DownloadName builds the filename offered for an encoded variant, e.g.
// "holiday-WebM-720p.webm" for "holiday.mov". It falls back to fallback when
// the original name sanitises to nothing.
func DownloadName(originalName, variant, ext, fallback string) string {
	stem := SanitizeFileName(Stem(originalName))
	if stem == "" {
		stem = SanitizeFileName(fallback)
	}
	if v := SanitizeFileName(variant); v != "" {
		stem += "-" + v
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}
