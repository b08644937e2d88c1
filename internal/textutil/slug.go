package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength bounds every slug produced by this package.
const MaxSlugLength = 80

// Slug lowercases letters and digits (any script), turns runs of spaces,
// dashes, and underscores into a single dash, and drops everything else.
// Leading separators are never emitted and trailing dashes are trimmed.
// The result is at most MaxSlugLength runes; fallback is returned when
// nothing survives.
func Slug(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	var b strings.Builder
	count := 0
	prevDash := false
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(unicode.ToLower(r))
			count++
			prevDash = false
		case r == ' ' || r == '-' || r == '_':
			if count > 0 && !prevDash {
				b.WriteByte('-')
				count++
				prevDash = true
			}
		}
		if count >= MaxSlugLength {
			break
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return fallback
	}
	return out
}

// NoteSlug applies NFKC normalization before Slug so compatibility forms
// (full-width letters, ligatures) collapse to their plain equivalents.
// Empty results fall back to "note".
func NoteSlug(value string) string {
	return Slug(strings.ToLower(norm.NFKC.String(value)), "note")
}
