package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"voxnote/internal/config"
	"voxnote/internal/fileutil"
	"voxnote/internal/logging"
	"voxnote/internal/media/ffmpeg"
	"voxnote/internal/media/vad"
	"voxnote/internal/services"
)

// TrimOptions selects what vad-trim works on. Nil overrides fall back to
// the configured VAD values.
type TrimOptions struct {
	File   string
	Force  bool
	DryRun bool

	Threshold    *float64
	MinSilenceMs *int
	MinSpeechMs  *int
	PadMs        *int
}

func (o TrimOptions) params(cfg config.VAD) (vad.Params, int) {
	p := vad.Params{
		Threshold:    cfg.Threshold,
		NegThreshold: cfg.NegThreshold,
		MinSilenceMs: cfg.MinSilenceDurationMs,
		MinSpeechMs:  cfg.MinSpeechDurationMs,
	}
	pad := cfg.SpeechPadMs
	if o.Threshold != nil {
		p.Threshold = *o.Threshold
		if p.NegThreshold > p.Threshold {
			p.NegThreshold = p.Threshold
		}
	}
	if o.MinSilenceMs != nil {
		p.MinSilenceMs = *o.MinSilenceMs
	}
	if o.MinSpeechMs != nil {
		p.MinSpeechMs = *o.MinSpeechMs
	}
	if o.PadMs != nil {
		pad = *o.PadMs
	}
	return p, pad
}

// Trim detects speech in each input recording and writes the speech-only
// audio into the trimmed cache. Recordings without speech are skipped, not
// failed. With DryRun the trimmed audio is rendered and then discarded.
func (w *Workflow) Trim(ctx context.Context, opts TrimOptions) (Summary, error) {
	ctx, logger := w.runContext(ctx, "vad-trim")
	summary := newSummary("vad-trim", "processed", "skipped_cached", "skipped_no_speech", "errors")

	params, padMs := opts.params(w.cfg.VAD)
	detector, err := w.deps.NewDetector(params)
	if err != nil {
		return *summary, err
	}
	files, err := w.inputFiles(opts.File)
	if err != nil {
		return *summary, err
	}
	if len(files) == 0 {
		w.send(Event{Type: EventInfo, Message: "No audio files to trim."})
		return w.finish(ctx, summary, "VAD trim complete")
	}

	sums, hashErrs := w.hashAll(ctx, files)
	for i, path := range files {
		if stopped(ctx) {
			break
		}
		if hashErrs[i] != nil {
			w.fail(logger, summary, "errors", path, "VAD trim error", hashErrs[i])
			continue
		}
		w.trimOne(ctx, summary, detector, path, sums[i], padMs, opts)
	}
	return w.finish(ctx, summary, "VAD trim complete")
}

func (w *Workflow) trimOne(ctx context.Context, summary *Summary, detector SpeechDetector, path, d string, padMs int, opts TrimOptions) {
	fctx := fileContext(ctx, "vad-trim", d)
	logger := logging.WithContext(fctx, w.logger)
	name := filepath.Base(path)

	if !opts.DryRun {
		decision := w.planner.Trim(d, opts.Force)
		if decision.Skip {
			logger.Debug("trim decision", logging.Args(logging.DecisionAttrs("trim", "skip", decision.Reason)...)...)
			summary.add("skipped_cached")
			w.metrics.File(summary.Run, "skipped")
			w.fileEvent(EventSkipped, path, "Skipped "+name+" (already trimmed)", nil)
			return
		}
	}

	w.fileEvent(EventProcessing, path, "Trimming "+name, nil)
	start := w.now()
	result, err := w.trimFile(fctx, detector, path, d, padMs, opts.DryRun)
	if err != nil {
		w.fail(logger, summary, "errors", path, "VAD trim error", err)
		return
	}
	w.timeStage("vad-trim", start)
	if len(result.kept) == 0 {
		summary.add("skipped_no_speech")
		w.metrics.File(summary.Run, "no_speech")
		logging.WarnWithContext(logger, "no speech detected", "vad_no_speech",
			logging.String(logging.FieldFile, path),
			logging.String(logging.FieldImpact, "no trimmed cache; process will transcribe the prepared or original audio"),
			logging.String(logging.FieldErrorHint, "lower vad.threshold if the recording does contain speech"),
		)
		w.fileEvent(EventSkipped, path, "Skipped "+name+" (no speech detected)", map[string]any{"reason": services.ErrNoSpeech.Error()})
		return
	}

	summary.add("processed")
	w.metrics.File(summary.Run, "trimmed")
	data := map[string]any{
		"segments":     len(result.kept),
		"kept_seconds": result.keptSeconds(),
		"dry_run":      opts.DryRun,
	}
	message := "Trimmed " + name
	if opts.DryRun {
		message = fmt.Sprintf("Dry run: %s keeps %.1fs in %d segments", name, result.keptSeconds(), len(result.kept))
	} else {
		data["trimmed_path"] = result.path
	}
	logger.Info("audio trimmed",
		logging.Int("segments", len(result.kept)),
		logging.Float64("kept_seconds", result.keptSeconds()),
		logging.Bool("dry_run", opts.DryRun),
	)
	w.fileEvent(EventCompleted, path, message, data)
}

type trimResult struct {
	path string
	kept []ffmpeg.Interval
}

func (r trimResult) keptSeconds() float64 {
	var total float64
	for _, iv := range r.kept {
		total += iv.Duration()
	}
	return total
}

// trimFile runs detection over the prepared cache (or a fresh decode) and
// renders the padded speech segments. No segments yields an empty result.
func (w *Workflow) trimFile(ctx context.Context, detector SpeechDetector, path, d string, padMs int, dryRun bool) (trimResult, error) {
	if err := os.MkdirAll(w.cfg.StateDir(), 0o755); err != nil {
		return trimResult{}, services.Wrap(services.ErrValidation, "vad-trim", "create state dir", w.cfg.StateDir(), err)
	}
	scratch, err := os.MkdirTemp(w.cfg.StateDir(), "vad-")
	if err != nil {
		return trimResult{}, services.Wrap(services.ErrValidation, "vad-trim", "create scratch dir", w.cfg.StateDir(), err)
	}
	defer os.RemoveAll(scratch)

	input, ok, err := w.cache.FindPrepared(d)
	if err != nil {
		return trimResult{}, err
	}
	if !ok {
		input = filepath.Join(scratch, "decoded.wav")
		if err := w.deps.Transcoder.Decode(ctx, path, input); err != nil {
			return trimResult{}, err
		}
	}

	segments, err := detector.DetectSpeechSegments(ctx, input)
	if err != nil {
		return trimResult{}, err
	}
	if len(segments) == 0 {
		return trimResult{}, nil
	}
	intervals := make([]ffmpeg.Interval, len(segments))
	for i, s := range segments {
		intervals[i] = ffmpeg.Interval{Start: s.Start, End: s.End}
	}

	target := filepath.Join(scratch, "trimmed.wav")
	if !dryRun {
		if target, err = w.cache.TrimmedPath(d); err != nil {
			return trimResult{}, err
		}
	}
	kept, err := w.deps.Transcoder.Trim(ctx, input, target, intervals, padMs)
	if err != nil {
		return trimResult{}, err
	}
	if !fileutil.NonEmpty(target) {
		return trimResult{}, services.Wrap(services.ErrEmptyOutput, "vad-trim", "verify output",
			"trimmed file is empty or missing; check the audio or adjust the vad settings", nil)
	}
	return trimResult{path: target, kept: kept}, nil
}
