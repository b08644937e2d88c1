package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// decodeObject decodes content directly, falling back to the span from the
// first '{' to the last '}' (which also strips code fences and prose).
func decodeObject(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
	}
	inner := trimmed[start : end+1]
	if err := json.Unmarshal([]byte(inner), target); err != nil {
		return fmt.Errorf("%w (extracted payload snippet: %s)", err, summarizePayloadSnippet(inner))
	}
	return nil
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
