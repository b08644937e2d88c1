package whisper

import "time"

// Config captures runtime settings for transcription.
type Config struct {
	// Binary is the executable name or path. The dash spelling is tried
	// when the default name is not on PATH.
	Binary string
	// Model is passed through --model when set.
	Model string
	// Language is an ISO code or "auto".
	Language string
	Timeout  time.Duration
	// StateDir holds scratch directories and whisper_debug.jsonl.
	StateDir string
	Debug    bool
}

const (
	// DefaultBinary is the primary executable name.
	DefaultBinary = "mlx_whisper"
	// AltBinary is the alternate executable name some installs use.
	AltBinary = "mlx-whisper"
	// DebugFile is the debug log name inside StateDir.
	DebugFile = "whisper_debug.jsonl"
)
