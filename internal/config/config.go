package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// ErrConfigNotFound reports that no config file exists at the resolved location.
var ErrConfigNotFound = errors.New("config file not found")

// Paths contains the note library directories. Relative values resolve
// against the directory holding the config file.
type Paths struct {
	Input   string `toml:"input" yaml:"input"`
	Output  string `toml:"output" yaml:"output"`
	Archive string `toml:"archive" yaml:"archive"`
	// State holds ledgers, audio caches, and debug logs. Default: <config dir>/.voxnote
	State string `toml:"state" yaml:"state"`
}

// Transcription configures the speech-to-text CLI.
type Transcription struct {
	Model           string  `toml:"model" yaml:"model"`
	Language        string  `toml:"language" yaml:"language"`
	Binary          string  `toml:"binary" yaml:"binary"`
	WhisperTimeoutS float64 `toml:"whisper_timeout_s" yaml:"whisper_timeout_s"`
}

// LLM configures the Ollama-compatible chat service used for note analysis.
type LLM struct {
	Model            string  `toml:"model" yaml:"model"`
	BaseURL          string  `toml:"base_url" yaml:"base_url"`
	Debug            bool    `toml:"debug" yaml:"debug"`
	Stream           bool    `toml:"stream" yaml:"stream"`
	ChatTimeoutS     float64 `toml:"chat_timeout_s" yaml:"chat_timeout_s"`
	TokenizeTimeoutS float64 `toml:"tokenize_timeout_s" yaml:"tokenize_timeout_s"`
	MaxRetries       int     `toml:"max_retries" yaml:"max_retries"`
	RetryBackoffS    float64 `toml:"retry_backoff_s" yaml:"retry_backoff_s"`
}

// Processing configures accepted inputs and the ffmpeg adapters.
type Processing struct {
	SupportedFormats      []string `toml:"supported_formats" yaml:"supported_formats"`
	FFmpegBinary          string   `toml:"ffmpeg_binary" yaml:"ffmpeg_binary"`
	FFprobeBinary         string   `toml:"ffprobe_binary" yaml:"ffprobe_binary"`
	FFmpegPrepareTimeoutS float64  `toml:"ffmpeg_prepare_timeout_s" yaml:"ffmpeg_prepare_timeout_s"`
	FFmpegTrimTimeoutS    float64  `toml:"ffmpeg_trim_timeout_s" yaml:"ffmpeg_trim_timeout_s"`
	// DenoiseModel is the RNNoise model consumed by ffmpeg's arnndn filter.
	// Default: <config dir>/assets/denoise/std.rnnn
	DenoiseModel string `toml:"denoise_model" yaml:"denoise_model"`
}

// VAD configures speech segment detection for trimming.
type VAD struct {
	// Backend selects the frame classifier: "energy" or "webrtc".
	Backend              string  `toml:"backend" yaml:"backend"`
	Threshold            float64 `toml:"threshold" yaml:"threshold"`
	NegThreshold         float64 `toml:"neg_threshold" yaml:"neg_threshold"`
	MinSilenceDurationMs int     `toml:"min_silence_duration_ms" yaml:"min_silence_duration_ms"`
	MinSpeechDurationMs  int     `toml:"min_speech_duration_ms" yaml:"min_speech_duration_ms"`
	SpeechPadMs          int     `toml:"speech_pad_ms" yaml:"speech_pad_ms"`
}

// Collect configures how source directories are scanned.
type Collect struct {
	RecursiveDefault bool `toml:"recursive_default" yaml:"recursive_default"`
}

// Source is a directory that collect copies recordings from.
type Source struct {
	Path      string `toml:"path" yaml:"path"`
	Recursive bool   `toml:"recursive" yaml:"recursive"`
}

// Prompts holds the analysis prompt text.
type Prompts struct {
	SystemPrompt string `toml:"system_prompt" yaml:"system_prompt"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
	// File additionally receives every log line when set.
	File string `toml:"file" yaml:"file"`
}

// Metrics configures the optional Prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile" yaml:"textfile"`
}

// Config encapsulates all configuration values for voxnote.
//
// Configuration sections by subsystem:
//   - Paths: input, output, archive, and state directories
//   - Transcription: speech-to-text model, language, and timeout
//   - LLM: chat service connection, streaming, retries, and debug logging
//   - Processing: supported extensions and ffmpeg settings
//   - VAD: speech detection thresholds and padding
//   - Collect, Sources: where recordings are copied from
//   - Prompts: the analysis system prompt
//   - Logging, Metrics: ambient output
type Config struct {
	Paths         Paths         `toml:"paths" yaml:"paths"`
	Transcription Transcription `toml:"transcription" yaml:"transcription"`
	LLM           LLM           `toml:"llm" yaml:"llm"`
	Processing    Processing    `toml:"processing" yaml:"processing"`
	VAD           VAD           `toml:"vad" yaml:"vad"`
	Collect       Collect       `toml:"collect" yaml:"collect"`
	Sources       []Source      `toml:"sources" yaml:"sources"`
	Prompts       Prompts       `toml:"prompts" yaml:"prompts"`
	Logging       Logging       `toml:"logging" yaml:"logging"`
	Metrics       Metrics       `toml:"metrics" yaml:"metrics"`

	// Dir is the absolute directory of the loaded config file.
	Dir string `toml:"-" yaml:"-"`
}

// DefaultConfigPath returns the absolute path to the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/voxnote/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file is an error wrapping
// ErrConfigNotFound; the resolved path is still returned so callers can
// suggest `voxnote init`.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := ResolvePath(path)
	if err != nil {
		return nil, "", false, err
	}
	if !exists {
		return nil, resolvedPath, false, fmt.Errorf("%w at %s: run `voxnote init` to create one, or pass --config", ErrConfigNotFound, resolvedPath)
	}

	data, err := os.ReadFile(resolvedPath)
	if err != nil {
		return nil, resolvedPath, true, fmt.Errorf("open config: %w", err)
	}
	if err := decode(resolvedPath, data, &cfg); err != nil {
		return nil, resolvedPath, true, fmt.Errorf("parse config: %w", err)
	}
	cfg.Dir = filepath.Dir(resolvedPath)

	if err := loadDotEnv(cfg.Dir); err != nil {
		return nil, resolvedPath, true, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, resolvedPath, true, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, resolvedPath, true, err
	}

	return &cfg, resolvedPath, true, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		return yaml.Unmarshal(data, cfg)
	default:
		return toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	}
}

// ResolvePath determines which config file to use. An explicit path wins,
// then $VOXNOTE_CONFIG, then project files in the working directory, then
// the per-user location. When nothing exists the project path voxnote.toml
// is returned with exists=false.
func ResolvePath(path string) (string, bool, error) {
	if path == "" {
		if value, ok := os.LookupEnv("VOXNOTE_CONFIG"); ok && strings.TrimSpace(value) != "" {
			path = strings.TrimSpace(value)
		}
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs("voxnote.toml")
	if err != nil {
		return "", false, err
	}
	candidates := []string{projectPath}
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		candidate, err := filepath.Abs(name)
		if err != nil {
			return "", false, err
		}
		candidates = append(candidates, candidate)
	}
	if userPath, err := DefaultConfigPath(); err == nil {
		candidates = append(candidates, userPath)
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return projectPath, false, nil
}

// EnsureDirectories creates the input, output, archive, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.Input, c.Paths.Output, c.Paths.Archive, c.Paths.State} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StateDir returns the directory that holds ledgers and caches.
func (c *Config) StateDir() string {
	return c.Paths.State
}

// SupportsExtension reports whether a file extension (with or without the
// leading dot, any case) is an accepted audio format.
func (c *Config) SupportsExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return false
	}
	return slices.Contains(c.Processing.SupportedFormats, ext)
}

// SupportsFile reports whether path has an accepted audio extension.
func (c *Config) SupportsFile(path string) bool {
	return c.SupportsExtension(filepath.Ext(path))
}

// SourceFor returns the configured source whose resolved path equals dir.
func (c *Config) SourceFor(dir string) (Source, bool) {
	clean := filepath.Clean(dir)
	for _, src := range c.Sources {
		if filepath.Clean(src.Path) == clean {
			return src, true
		}
	}
	return Source{}, false
}

// WhisperTimeout returns the transcription subprocess timeout.
func (t Transcription) WhisperTimeout() time.Duration { return seconds(t.WhisperTimeoutS) }

// ChatTimeout returns the chat request timeout.
func (l LLM) ChatTimeout() time.Duration { return seconds(l.ChatTimeoutS) }

// TokenizeTimeout returns the tokenize request timeout.
func (l LLM) TokenizeTimeout() time.Duration { return seconds(l.TokenizeTimeoutS) }

// RetryBackoff returns the base delay between chat retries.
func (l LLM) RetryBackoff() time.Duration { return seconds(l.RetryBackoffS) }

// PrepareTimeout returns the ffmpeg preparation timeout.
func (p Processing) PrepareTimeout() time.Duration { return seconds(p.FFmpegPrepareTimeoutS) }

// TrimTimeout returns the ffmpeg trim timeout.
func (p Processing) TrimTimeout() time.Duration { return seconds(p.FFmpegTrimTimeoutS) }

func seconds(value float64) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	return expandPathFrom("", pathValue)
}

// expandPathFrom expands ~ and resolves relative paths against base (or the
// working directory when base is empty).
func expandPathFrom(base, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	if !filepath.IsAbs(cleaned) && base != "" {
		cleaned = filepath.Join(base, cleaned)
	}
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
