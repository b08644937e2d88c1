package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"voxnote/internal/fileutil"
	"voxnote/internal/services"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Transcoder runs ffmpeg for the prepare, decode, and trim stages.
type Transcoder struct {
	binary         string
	denoiseModel   string
	prepareTimeout time.Duration
	trimTimeout    time.Duration
	runner         Runner
}

// Options configures a Transcoder.
type Options struct {
	Binary         string
	DenoiseModel   string
	PrepareTimeout time.Duration
	TrimTimeout    time.Duration
}

// New returns a Transcoder that executes the configured ffmpeg binary.
func New(opts Options) *Transcoder {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Transcoder{
		binary:         binary,
		denoiseModel:   opts.DenoiseModel,
		prepareTimeout: opts.PrepareTimeout,
		trimTimeout:    opts.TrimTimeout,
		runner:         execRunner,
	}
}

// WithRunner replaces command execution (for testing).
func (t *Transcoder) WithRunner(runner Runner) {
	if runner != nil {
		t.runner = runner
	}
}

// Binary returns the ffmpeg executable name or path.
func (t *Transcoder) Binary() string { return t.binary }

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%w: %s not found on PATH: %w", services.ErrExternalTool, name, err)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Prepare converts original into a denoised, loudness-normalized mono
// 16 kHz PCM WAV at target.
func (t *Transcoder) Prepare(ctx context.Context, original, target string) error {
	if _, err := os.Stat(original); err != nil {
		return services.Wrap(services.ErrNotFound, "prepare", "stat original", "original audio file not found", err)
	}
	filter, err := PrepareFilter(t.denoiseModel)
	if err != nil {
		return err
	}
	return t.produce(ctx, "prepare", t.prepareTimeout, target, func(tmp string) []string {
		return []string{
			"-y",
			"-i", original,
			"-ac", "1",
			"-ar", "16000",
			"-c:a", "pcm_s16le",
			"-af", filter,
			tmp,
		}
	})
}

// Decode converts in to a mono 16 kHz WAV without filtering.
func (t *Transcoder) Decode(ctx context.Context, in, out string) error {
	return t.produce(ctx, "decode", t.trimTimeout, out, func(tmp string) []string {
		return []string{
			"-i", in,
			"-ar", "16000",
			"-ac", "1",
			"-f", "wav",
			"-y", tmp,
		}
	})
}

// Trim keeps only the padded speech segments of in and writes them,
// concatenated, to out. The codec follows out's extension. It returns the
// merged intervals that were kept.
func (t *Transcoder) Trim(ctx context.Context, in, out string, segments []Interval, padMs int) ([]Interval, error) {
	filter, merged, err := BuildTrimFilter(segments, padMs)
	if err != nil {
		return nil, err
	}
	codec := CodecForExtension(filepath.Ext(out))
	err = t.produce(ctx, "trim", t.trimTimeout, out, func(tmp string) []string {
		return []string{
			"-i", in,
			"-filter_complex", filter,
			"-map", "[out]",
			"-c:a", codec,
			"-y", tmp,
		}
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// produce runs ffmpeg against a temporary file beside target and moves the
// result into place once it is known to be non-empty.
func (t *Transcoder) produce(ctx context.Context, stage string, timeout time.Duration, target string, args func(tmp string) []string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "create output dir", "cannot create output directory", err)
	}
	tmpFile, err := os.CreateTemp(dir, "."+stage+"-*"+filepath.Ext(target))
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "create temp file", "cannot create temporary output", err)
	}
	tmp := tmpFile.Name()
	_ = tmpFile.Close()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, err := t.runner(runCtx, t.binary, args(tmp)...)
	if err != nil {
		return classifyRunError(runCtx, stage, timeout, output, err)
	}
	if !fileutil.NonEmpty(tmp) {
		return services.Wrap(services.ErrEmptyOutput, stage, "verify output",
			fmt.Sprintf("ffmpeg %s produced an empty file; the recording may be corrupt or in an unsupported format", stage), nil)
	}
	if err := fileutil.MoveFile(tmp, target); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, "commit output", "cannot move ffmpeg output into place", err)
	}
	committed = true
	return nil
}

func classifyRunError(ctx context.Context, stage string, timeout time.Duration, output []byte, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stage, "run ffmpeg",
			fmt.Sprintf("ffmpeg %s timed out after %s; raise the processing timeout or use a shorter recording", stage, timeout), err)
	}
	if errors.Is(err, services.ErrExternalTool) {
		return services.Wrap(services.ErrExternalTool, stage, "locate ffmpeg",
			"ffmpeg not found; install it (brew install ffmpeg) and make sure it is on PATH", err)
	}
	detail := strings.TrimSpace(string(output))
	if detail == "" {
		detail = err.Error()
	}
	return services.Wrap(services.ErrExternalTool, stage, "run ffmpeg", "ffmpeg "+stage+" failed: "+lastLines(detail, 5), err)
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
