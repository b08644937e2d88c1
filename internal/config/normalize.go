package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"voxnote/internal/language"
)

// loadDotEnv reads <dir>/.env when present. Variables already set in the
// process environment are left untouched.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeLLM()
	if err := c.normalizeProcessing(); err != nil {
		return err
	}
	c.normalizeVAD()
	if err := c.normalizeSources(); err != nil {
		return err
	}
	c.Prompts.SystemPrompt = strings.TrimSpace(c.Prompts.SystemPrompt)
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	if c.Metrics.Textfile != "" {
		var err error
		if c.Metrics.Textfile, err = expandPathFrom(c.Dir, c.Metrics.Textfile); err != nil {
			return fmt.Errorf("metrics.textfile: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.Input) == "" {
		c.Paths.Input = defaultInputDir
	}
	if strings.TrimSpace(c.Paths.Output) == "" {
		c.Paths.Output = defaultOutputDir
	}
	if strings.TrimSpace(c.Paths.Archive) == "" {
		c.Paths.Archive = defaultArchiveDir
	}
	if strings.TrimSpace(c.Paths.State) == "" {
		c.Paths.State = defaultStateDirName
	}
	if c.Paths.Input, err = expandPathFrom(c.Dir, c.Paths.Input); err != nil {
		return fmt.Errorf("paths.input: %w", err)
	}
	if c.Paths.Output, err = expandPathFrom(c.Dir, c.Paths.Output); err != nil {
		return fmt.Errorf("paths.output: %w", err)
	}
	if c.Paths.Archive, err = expandPathFrom(c.Dir, c.Paths.Archive); err != nil {
		return fmt.Errorf("paths.archive: %w", err)
	}
	if c.Paths.State, err = expandPathFrom(c.Dir, c.Paths.State); err != nil {
		return fmt.Errorf("paths.state: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	c.Transcription.Language = language.Normalize(c.Transcription.Language)
	c.Transcription.Binary = strings.TrimSpace(c.Transcription.Binary)
	if c.Transcription.Binary == "" {
		c.Transcription.Binary = defaultWhisperBinary
	}
}

func (c *Config) normalizeLLM() {
	if value, ok := os.LookupEnv("VOXNOTE_LLM_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.LLM.BaseURL = value
	}
	if value, ok := os.LookupEnv("VOXNOTE_LLM_MODEL"); ok && strings.TrimSpace(value) != "" {
		c.LLM.Model = value
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
}

func (c *Config) normalizeProcessing() error {
	formats := make([]string, 0, len(c.Processing.SupportedFormats))
	seen := make(map[string]struct{}, len(c.Processing.SupportedFormats))
	for _, format := range c.Processing.SupportedFormats {
		format = strings.ToLower(strings.TrimLeft(strings.TrimSpace(format), "."))
		if format == "" {
			continue
		}
		if _, ok := seen[format]; ok {
			continue
		}
		seen[format] = struct{}{}
		formats = append(formats, format)
	}
	c.Processing.SupportedFormats = formats

	c.Processing.FFmpegBinary = strings.TrimSpace(c.Processing.FFmpegBinary)
	if c.Processing.FFmpegBinary == "" {
		c.Processing.FFmpegBinary = defaultFFmpegBinary
	}
	c.Processing.FFprobeBinary = strings.TrimSpace(c.Processing.FFprobeBinary)
	if c.Processing.FFprobeBinary == "" {
		c.Processing.FFprobeBinary = defaultFFprobeBinary
	}
	if strings.TrimSpace(c.Processing.DenoiseModel) == "" {
		c.Processing.DenoiseModel = defaultDenoiseModel
	}
	var err error
	if c.Processing.DenoiseModel, err = expandPathFrom(c.Dir, c.Processing.DenoiseModel); err != nil {
		return fmt.Errorf("processing.denoise_model: %w", err)
	}
	return nil
}

func (c *Config) normalizeVAD() {
	c.VAD.Backend = strings.ToLower(strings.TrimSpace(c.VAD.Backend))
	if c.VAD.Backend == "" {
		c.VAD.Backend = defaultVADBackend
	}
}

func (c *Config) normalizeSources() error {
	kept := c.Sources[:0]
	for i, src := range c.Sources {
		if strings.TrimSpace(src.Path) == "" {
			continue
		}
		resolved, err := expandPathFrom(c.Dir, src.Path)
		if err != nil {
			return fmt.Errorf("sources[%d].path: %w", i, err)
		}
		src.Path = resolved
		kept = append(kept, src)
	}
	c.Sources = kept
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json", "console":
	case "text", "":
		c.Logging.Format = defaultLogFormat
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.File != "" {
		var err error
		if c.Logging.File, err = expandPathFrom(c.Dir, c.Logging.File); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}
