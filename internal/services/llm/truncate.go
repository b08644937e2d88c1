package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"voxnote/internal/services"
)

const (
	// ContextWindow is the num_ctx sent with every chat request.
	ContextWindow = 16384
	// UserPromptPrefix precedes the note text in the user message.
	UserPromptPrefix = "Analyze the following note and respond ONLY with JSON. Note text:\n"
	// TruncationMarker is appended to a note cut to fit the context window.
	TruncationMarker = "\n[... text truncated due to context limit ...]"

	completionReserve = 512
	truncateAttempts  = 5
)

// Truncate cuts noteText from the end so that the system prompt, prefix, a
// completion reserve and the note fit in maxTokens. A note that already fits
// is returned unchanged.
func Truncate(ctx context.Context, counter TokenCounter, systemPrompt, noteText string, maxTokens int) (string, error) {
	systemTokens := counter.CountTokens(ctx, systemPrompt)
	prefixTokens := counter.CountTokens(ctx, UserPromptPrefix)
	reserved := systemTokens + prefixTokens + completionReserve
	available := maxTokens - reserved
	if available <= 0 {
		return "", services.Wrap(services.ErrContextTooSmall, "analyze", "truncate",
			fmt.Sprintf("Context window too small: max_tokens=%d, reserved_tokens=%d (system=%d, prefix=%d, completion_reserve=%d)",
				maxTokens, reserved, systemTokens, prefixTokens, completionReserve), nil)
	}

	noteTokens := counter.CountTokens(ctx, noteText)
	if noteTokens <= available {
		return noteText, nil
	}

	markerTokens := counter.CountTokens(ctx, TruncationMarker)
	availableForNote := available - markerTokens
	if availableForNote <= 0 {
		return "", services.Wrap(services.ErrContextTooSmall, "analyze", "truncate",
			fmt.Sprintf("Context window too small to include truncation marker: max_tokens=%d, reserved_tokens=%d, available_tokens=%d, marker_tokens=%d",
				maxTokens, reserved, available, markerTokens), nil)
	}

	ratio := float64(availableForNote) / float64(noteTokens)
	target := int(ratio * float64(len(noteText)) * 0.95)
	truncated := cutBytes(noteText, target)
	for range truncateAttempts {
		if counter.CountTokens(ctx, truncated) <= availableForNote {
			break
		}
		target = int(float64(target) * 0.85)
		truncated = cutBytes(noteText, target)
	}
	return strings.TrimRightFunc(truncated, unicode.IsSpace) + TruncationMarker, nil
}

// cutBytes keeps the first n bytes of s, dropping a partial trailing rune.
func cutBytes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if n >= len(s) {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
