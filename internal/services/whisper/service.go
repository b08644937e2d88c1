package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"voxnote/internal/language"
	"voxnote/internal/logging"
	"voxnote/internal/services"
	"voxnote/internal/textutil"
)

// RunResult is the outcome of one subprocess.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes a command. A non-nil error with a populated RunResult
// means the command ran and exited non-zero.
type Runner func(ctx context.Context, name string, args ...string) (RunResult, error)

// Result is a finished transcription.
type Result struct {
	AudioPath string
	Text      string
}

// Service provides transcription through mlx_whisper.
type Service struct {
	cfg      Config
	runner   Runner
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// NewService creates a transcription service with the given configuration.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:      cfg,
		runner:   execRunner,
		lookPath: exec.LookPath,
		logger:   logging.NewComponentLogger(logger, "whisper"),
	}
}

// WithCommandRunner sets a custom command runner (for testing). Binary
// lookup is skipped when a runner is installed.
func (s *Service) WithCommandRunner(runner Runner) {
	s.runner = runner
	s.lookPath = func(name string) (string, error) { return name, nil }
}

// Model returns the configured model name for logging.
func (s *Service) Model() string { return s.cfg.Model }

// Language returns the configured language code.
func (s *Service) Language() string { return language.Normalize(s.cfg.Language) }

func execRunner(ctx context.Context, name string, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	return res, err
}

// ResolveBinary finds the transcriber executable.
func (s *Service) ResolveBinary() (string, error) {
	candidates := []string{strings.TrimSpace(s.cfg.Binary)}
	if candidates[0] == "" || candidates[0] == DefaultBinary {
		candidates = []string{DefaultBinary, AltBinary}
	}
	var lastErr error
	for _, name := range candidates {
		path, err := s.lookPath(name)
		if err == nil {
			return path, nil
		}
		lastErr = err
	}
	return "", services.Wrap(services.ErrExternalTool, "transcribe", "locate mlx_whisper",
		"mlx_whisper CLI not found; install it with 'pip install mlx-whisper' and make sure it is on PATH", lastErr)
}

// BuildArgs returns the transcriber arguments for audioPath.
func (s *Service) BuildArgs(audioPath, outputDir string) []string {
	args := []string{"--output-format", "txt", "--output-dir", outputDir, audioPath}
	if model := strings.TrimSpace(s.cfg.Model); model != "" {
		args = append(args, "--model", model)
	}
	if lang := language.Normalize(s.cfg.Language); lang != language.Auto {
		args = append(args, "--language", lang)
	}
	return args
}

// TranscribeFile transcribes audioPath and returns cleaned plain text.
func (s *Service) TranscribeFile(ctx context.Context, audioPath string) (Result, error) {
	abs, err := filepath.Abs(audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: resolve path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "transcribe", "stat audio", "audio file not found", err)
	}
	binary, err := s.ResolveBinary()
	if err != nil {
		return Result{}, err
	}

	scratchRoot := s.cfg.StateDir
	if scratchRoot != "" {
		if err := os.MkdirAll(scratchRoot, 0o755); err != nil {
			return Result{}, fmt.Errorf("transcribe: ensure state dir: %w", err)
		}
	}
	outputDir, err := os.MkdirTemp(scratchRoot, "whisper-")
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: create scratch dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	args := s.BuildArgs(abs, outputDir)
	cmdline := append([]string{binary}, args...)

	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	s.logger.Debug("running transcriber",
		logging.String(logging.FieldFile, abs),
		logging.String("model", s.cfg.Model),
		logging.String("language", s.Language()),
	)
	res, err := s.runner(runCtx, binary, args...)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			msg := fmt.Sprintf("mlx_whisper process timed out after %s", s.cfg.Timeout)
			s.debugLog(abs, cmdline, nil, RunResult{}, msg)
			return Result{}, services.Wrap(services.ErrTimeout, "transcribe", "run mlx_whisper",
				msg+"; increase transcription.whisper_timeout_s or use a shorter recording", err)
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "run mlx_whisper",
				"mlx_whisper CLI not found; install it with 'pip install mlx-whisper'", err)
		}
		code := res.ExitCode
		s.debugLog(abs, cmdline, &code, res, "mlx_whisper process failed")
		msg := fmt.Sprintf("mlx_whisper failed (exit_code=%d, stdout=%d chars, stderr=%d chars); check that the audio file is valid. %s",
			res.ExitCode, len(res.Stdout), len(res.Stderr), s.debugHint())
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "run mlx_whisper", msg, err)
	}

	output, ok := findOutput(outputDir, abs)
	code := res.ExitCode
	if !ok {
		s.debugLog(abs, cmdline, &code, res, "mlx_whisper did not create a txt output file")
		msg := fmt.Sprintf("mlx_whisper did not create a txt output file (stdout=%d chars, stderr=%d chars). %s",
			len(res.Stdout), len(res.Stderr), s.debugHint())
		return Result{}, services.Wrap(services.ErrEmptyOutput, "transcribe", "read output", msg, nil)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: read output: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		s.debugLog(abs, cmdline, &code, res, "empty transcription in txt output file")
		return Result{}, services.Wrap(services.ErrEmptyOutput, "transcribe", "read output",
			"empty transcription from mlx_whisper; the recording may be silent or too quiet", nil)
	}
	return Result{AudioPath: abs, Text: textutil.RemoveRepetitions(text, textutil.DefaultMaxRepeats)}, nil
}

// findOutput locates the transcript: <stem>.txt, then <name>.txt, then the
// only .txt file in dir.
func findOutput(dir, audioPath string) (string, bool) {
	name := filepath.Base(audioPath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, candidate := range []string{stem + ".txt", name + ".txt"} {
		path := filepath.Join(dir, candidate)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil || len(matches) != 1 {
		return "", false
	}
	return matches[0], true
}

func (s *Service) debugHint() string {
	if s.cfg.Debug {
		return "Details: " + filepath.Join(s.cfg.StateDir, DebugFile)
	}
	return "Enable llm.debug in the config for detailed logs."
}
