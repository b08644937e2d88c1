package textutil

import "strings"

// DefaultMaxRepeats is the number of consecutive identical lines tolerated
// before RemoveRepetitions collapses the run.
const DefaultMaxRepeats = 3

// RemoveRepetitions collapses runs of identical lines that speech-to-text
// models tend to emit over silence or noise. Lines compare after trimming
// and blank lines inside a run are ignored. A run longer than maxRepeats is
// replaced by min(maxRepeats, 2) copies of the trimmed line; shorter runs are
// kept verbatim. The result is trimmed.
func RemoveRepetitions(text string, maxRepeats int) string {
	if text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))

	for i := 0; i < len(lines); {
		current := strings.TrimSpace(lines[i])
		if current == "" {
			cleaned = append(cleaned, lines[i])
			i++
			continue
		}

		repeats := 1
		j := i + 1
		for j < len(lines) {
			next := strings.TrimSpace(lines[j])
			if next == current {
				repeats++
				j++
				continue
			}
			if next == "" {
				j++
				continue
			}
			break
		}

		if repeats > maxRepeats {
			for range min(maxRepeats, 2) {
				cleaned = append(cleaned, current)
			}
		} else {
			cleaned = append(cleaned, lines[i:j]...)
		}
		i = j
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
