package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	// ErrTransport marks network failures talking to a local service.
	ErrTransport = errors.New("transport error")
	// ErrInvalidResponse marks a reply that could not be parsed into the expected shape.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrEmptyOutput marks a tool run that exited cleanly but produced nothing usable.
	ErrEmptyOutput = errors.New("empty output")
	// ErrContextTooSmall marks a model context window that cannot hold the prompt.
	ErrContextTooSmall = errors.New("context window too small")
	// ErrNoSpeech marks audio where voice activity detection found nothing to keep.
	ErrNoSpeech = errors.New("no speech segments detected")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether an operation failing with err may succeed if attempted again.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrTransport), errors.Is(err, ErrTimeout), errors.Is(err, ErrTransient):
		return true
	default:
		return false
	}
}

// Hint returns a short corrective action for user-facing error output.
func Hint(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "ffmpeg"), strings.Contains(msg, "ffprobe"):
		return "Install ffmpeg (brew install ffmpeg) and make sure it is on PATH."
	case strings.Contains(msg, "mlx_whisper"), strings.Contains(msg, "mlx-whisper"):
		return "Install mlx-whisper (pip install mlx-whisper) and make sure mlx_whisper is on PATH."
	case strings.Contains(msg, "ollama"), errors.Is(err, ErrTransport):
		return "Start Ollama (ollama serve) and check llm.base_url and llm.model in the config."
	case errors.Is(err, ErrContextTooSmall):
		return "Shorten the system prompt or use a model with a larger context window."
	case errors.Is(err, ErrInvalidResponse):
		return "Adjust the system prompt so the model returns JSON with title and category."
	case strings.Contains(msg, "permission denied"):
		return "Check file permissions for the input, output, and archive directories."
	case errors.Is(err, ErrConfiguration):
		return "Fix the config file and rerun; `voxnote doctor` lists what is missing."
	default:
		return ""
	}
}

// WithHint appends the corrective hint for err to message when one exists.
func WithHint(message string, err error) string {
	hint := Hint(err)
	if hint == "" {
		return message
	}
	return message + " Hint: " + hint
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
