// Package testsupport builds temporary configs, stub tool scripts, and audio
// fixtures for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"voxnote/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a fresh temp directory with the
// input, output, archive, and state directories created. Required model and
// prompt values are filled with placeholders.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Dir = base
	cfgVal.Paths.Input = filepath.Join(base, "input")
	cfgVal.Paths.Output = filepath.Join(base, "output")
	cfgVal.Paths.Archive = filepath.Join(base, "archive")
	cfgVal.Paths.State = filepath.Join(base, ".voxnote")
	cfgVal.Processing.DenoiseModel = filepath.Join(base, "assets", "denoise", "std.rnnn")
	cfgVal.Transcription.Model = "mlx-community/whisper-small"
	cfgVal.LLM.Model = "llama3"
	cfgVal.Prompts.SystemPrompt = "Return JSON with title, category, and short_summary."

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("create config dirs: %v", err)
	}
	return builder.cfg
}

// WithLLMBaseURL points the chat client at a test server.
func WithLLMBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithStubbedBinaries writes stub executables that exit 0 for the provided
// names and prepends them to PATH. If names is empty, ffmpeg, ffprobe, and
// mlx_whisper are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "mlx_whisper"}
		}
		for _, name := range names {
			StubScript(b.t, b.binDir(), name, "exit 0\n")
		}
		PrependPath(b.t, b.binDir())
	}
}

func (b *configBuilder) binDir() string {
	return filepath.Join(b.baseDir, "bin")
}

// StubScript writes an executable shell script dir/name with body and
// returns its path.
func StubScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// PrependPath puts dir first on PATH for the rest of the test.
func PrependPath(t testing.TB, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Dir
}
