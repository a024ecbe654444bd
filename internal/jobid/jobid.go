// Package jobid generates and sanitizes the job_id component used to name a
// job's working directory.
package jobid

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// New builds a job_id of the form YY-MMDD-HHMMSS_<slug>, sorting
// chronologically by construction. source is typically the ingested file's
// base name; it is slugged and truncated to keep directory names short.
func New(now time.Time, source string) string {
	stamp := now.UTC().Format("06-0102-150405")
	slug := Slugify(baseNameWithoutExt(source))
	if slug == "" {
		slug = "job"
	}
	return fmt.Sprintf("%s_%s", stamp, slug)
}

func baseNameWithoutExt(source string) string {
	base := filepath.Base(strings.TrimSpace(source))
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

const maxSlugLength = 40

// Slugify lowercases, replaces non-alphanumeric runs with a single hyphen,
// and trims the result to maxSlugLength, producing a value safe to embed in
// a job_id or a filename.
func Slugify(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.Trim(slug[:maxSlugLength], "-")
	}
	return slug
}

// IsValid reports whether a string looks like a job_id this package would
// produce: a sortable timestamp prefix followed by an underscore and a slug.
func IsValid(value string) bool {
	parts := strings.SplitN(value, "_", 2)
	if len(parts) != 2 {
		return false
	}
	stamp := parts[0]
	if len(stamp) != len("06-0102-150405") {
		return false
	}
	if _, err := time.Parse("06-0102-150405", stamp); err != nil {
		return false
	}
	return parts[1] != ""
}
