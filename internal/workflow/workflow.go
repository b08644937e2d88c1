package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"voxnote/internal/audiocache"
	"voxnote/internal/config"
	"voxnote/internal/fileutil"
	"voxnote/internal/ledger"
	"voxnote/internal/logging"
	"voxnote/internal/media/ffmpeg"
	"voxnote/internal/media/vad"
	"voxnote/internal/metadata"
	"voxnote/internal/metrics"
	"voxnote/internal/organizer"
	"voxnote/internal/planner"
	"voxnote/internal/services"
	"voxnote/internal/services/llm"
	"voxnote/internal/services/whisper"
)

// Transcoder runs the ffmpeg-backed stages.
type Transcoder interface {
	Prepare(ctx context.Context, original, target string) error
	Decode(ctx context.Context, in, out string) error
	Trim(ctx context.Context, in, out string, segments []ffmpeg.Interval, padMs int) ([]ffmpeg.Interval, error)
}

// SpeechDetector finds speech segments in a 16 kHz mono WAV.
type SpeechDetector interface {
	DetectSpeechSegments(ctx context.Context, wavPath string) ([]vad.Segment, error)
}

// DetectorFactory builds a detector for one trim run's parameters.
type DetectorFactory func(params vad.Params) (SpeechDetector, error)

// Transcriber turns audio into text.
type Transcriber interface {
	TranscribeFile(ctx context.Context, audioPath string) (whisper.Result, error)
}

// Analyzer derives title, category, and summary from note text.
type Analyzer interface {
	Analyze(ctx context.Context, systemPrompt, noteText string) (llm.Analysis, error)
}

// MetadataCollector reads recording metadata from an audio file.
type MetadataCollector interface {
	Collect(ctx context.Context, path string) (metadata.Metadata, error)
}

// NoteOrganizer writes the note and archives the audio.
type NoteOrganizer interface {
	Organize(ctx context.Context, req organizer.Request) (organizer.NoteContext, error)
}

// Dependencies are the stage adapters a Workflow calls.
type Dependencies struct {
	Transcoder  Transcoder
	NewDetector DetectorFactory
	Transcriber Transcriber
	Analyzer    Analyzer
	Metadata    MetadataCollector
	Organizer   NoteOrganizer
}

// Workflow runs pipeline stages against one configuration and state dir.
type Workflow struct {
	cfg     *config.Config
	ledger  *ledger.Ledger
	cache   *audiocache.Resolver
	planner *planner.Planner
	deps    Dependencies
	metrics *metrics.Recorder
	logger  *slog.Logger
	emit    Emitter
	now     func() time.Time
	// copyFile copies a source recording into input/.
	copyFile func(src, dst string) error
	// hashWorkers bounds concurrent hashing while planning a run.
	hashWorkers int
}

// Option customizes a Workflow.
type Option func(*Workflow)

// WithEmitter delivers events to fn.
func WithEmitter(fn Emitter) Option {
	return func(w *Workflow) {
		if fn != nil {
			w.emit = fn
		}
	}
}

// WithMetrics records run counters and stage timings.
func WithMetrics(r *metrics.Recorder) Option {
	return func(w *Workflow) { w.metrics = r }
}

// New returns a workflow over cfg using the given adapters.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger, opts ...Option) *Workflow {
	if logger == nil {
		logger = logging.NewNop()
	}
	l := ledger.Open(cfg.StateDir(), logger)
	cache := audiocache.New(cfg.StateDir())
	w := &Workflow{
		cfg:         cfg,
		ledger:      l,
		cache:       cache,
		planner:     planner.New(l, cache),
		deps:        deps,
		logger:      logging.NewComponentLogger(logger, "workflow"),
		emit:        func(Event) {},
		now:         time.Now,
		copyFile:    fileutil.CopyFilePreserve,
		hashWorkers: 4,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewDefault wires the real ffmpeg, VAD, mlx_whisper, Ollama, ffprobe, and
// organizer adapters from cfg.
func NewDefault(cfg *config.Config, logger *slog.Logger, opts ...Option) *Workflow {
	deps := Dependencies{
		Transcoder: ffmpeg.New(ffmpeg.Options{
			Binary:         cfg.Processing.FFmpegBinary,
			DenoiseModel:   cfg.Processing.DenoiseModel,
			PrepareTimeout: cfg.Processing.PrepareTimeout(),
			TrimTimeout:    cfg.Processing.TrimTimeout(),
		}),
		NewDetector: func(params vad.Params) (SpeechDetector, error) {
			d, err := vad.NewDetector(cfg.VAD.Backend, params)
			if err != nil {
				return nil, err
			}
			return d, nil
		},
		Transcriber: whisper.NewService(whisper.Config{
			Binary:   cfg.Transcription.Binary,
			Model:    cfg.Transcription.Model,
			Language: cfg.Transcription.Language,
			Timeout:  cfg.Transcription.WhisperTimeout(),
			StateDir: cfg.StateDir(),
			Debug:    cfg.LLM.Debug,
		}, logger),
		Analyzer: llm.NewClient(llm.Config{
			BaseURL:         cfg.LLM.BaseURL,
			Model:           cfg.LLM.Model,
			Stream:          cfg.LLM.Stream,
			ChatTimeout:     cfg.LLM.ChatTimeout(),
			TokenizeTimeout: cfg.LLM.TokenizeTimeout(),
			MaxRetries:      cfg.LLM.MaxRetries,
			RetryBackoff:    cfg.LLM.RetryBackoff(),
			Debug:           cfg.LLM.Debug,
			StateDir:        cfg.StateDir(),
		}, logger),
		Metadata:  metadata.NewCollector(cfg.Processing.FFprobeBinary, logger),
		Organizer: organizer.New(cfg, logger),
	}
	return New(cfg, deps, logger, opts...)
}

// runContext tags ctx with the run name and a fresh correlation id.
func (w *Workflow) runContext(ctx context.Context, run string) (context.Context, *slog.Logger) {
	ctx = services.WithRun(ctx, run)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	return ctx, logging.WithContext(ctx, w.logger)
}

// fileContext detaches per-file work from run cancellation so a stage
// that has started completes within its own timeout.
func fileContext(ctx context.Context, stage, d string) context.Context {
	ctx = context.WithoutCancel(ctx)
	ctx = services.WithStage(ctx, stage)
	return services.WithFileDigest(ctx, d)
}

// stopped reports whether the run should end before the next file.
func stopped(ctx context.Context) bool {
	return ctx.Err() != nil
}

func (w *Workflow) send(ev Event) {
	w.emit(ev)
}

func (w *Workflow) fileEvent(typ EventType, path, message string, data map[string]any) {
	w.send(Event{Type: typ, Message: message, File: path, Data: data})
}

// fail reports a per-file error with a corrective hint appended.
func (w *Workflow) fail(logger *slog.Logger, summary *Summary, counter, path, prefix string, err error) {
	summary.add(counter)
	w.metrics.File(summary.Run, "error")
	message := services.WithHint(prefix+": "+err.Error(), err)
	attrs := []logging.Attr{logging.String(logging.FieldFile, path), logging.Error(err)}
	if hint := services.Hint(err); hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
	}
	logging.ErrorWithContext(logger, prefix, summary.Run+"_file_failed", attrs...)
	w.fileEvent(EventError, path, message, map[string]any{"error": err.Error()})
}

func (w *Workflow) timeStage(stage string, start time.Time) {
	w.metrics.Stage(stage, w.now().Sub(start))
}

// finish emits the summary event and returns the summary, reporting
// cancellation when the run stopped early.
func (w *Workflow) finish(ctx context.Context, summary *Summary, message string) (Summary, error) {
	w.metrics.RunFinished(summary.Run, w.now())
	w.send(Event{Type: EventSummary, Message: message, Data: summary.Map()})
	return *summary, ctx.Err()
}
