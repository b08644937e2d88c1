package language

import "strings"

// Auto requests language detection from the transcriber.
const Auto = "auto"

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

// Supported transcription languages.
var languages = []entry{
	{"en", "eng", "English", []string{"english"}},
	{"ru", "rus", "Russian", []string{"russian", "русский"}},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages))
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Normalize maps a language setting to "auto" or a supported ISO 639-1 code.
// Blank input means auto. Unrecognized input is returned lowercased so
// validation can report it.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	switch code {
	case "", Auto, "detect", "auto-detect":
		return Auto
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	return code
}

// Supported reports whether code is auto or a supported language after normalization.
func Supported(code string) bool {
	normalized := Normalize(code)
	if normalized == Auto {
		return true
	}
	_, ok := byCode2[normalized]
	return ok
}

// Codes lists the accepted normalized values, auto first.
func Codes() []string {
	out := []string{Auto}
	for _, e := range languages {
		out = append(out, e.code2)
	}
	return out
}

// ToISO2 converts a recognized language code or word to ISO 639-1.
// Returns empty string for unrecognized input and for auto.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if e := lookup(code); e != nil {
		return e.code2
	}
	return ""
}

// DisplayName returns a human-readable language name.
func DisplayName(code string) string {
	normalized := Normalize(code)
	if normalized == Auto {
		return "Auto-detect"
	}
	if e := lookup(normalized); e != nil {
		return e.display
	}
	return strings.ToUpper(normalized)
}

// ExtractFromTags extracts and normalizes the language from container metadata tags.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := []string{"language", "LANGUAGE", "Language", "lang", "LANG"}
	for _, key := range keys {
		if value, ok := tags[key]; ok {
			value = strings.TrimSpace(strings.ReplaceAll(value, "\u0000", ""))
			if value != "" {
				return strings.ToLower(value)
			}
		}
	}
	return ""
}
