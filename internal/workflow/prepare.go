package workflow

import (
	"context"
	"path/filepath"

	"voxnote/internal/logging"
	"voxnote/internal/services"
)

// PrepareOptions selects what prepare-vad works on.
type PrepareOptions struct {
	File  string
	Force bool
}

// Prepare writes a denoised, normalized 16 kHz mono WAV into the prepared
// cache for each input recording that does not have one yet.
func (w *Workflow) Prepare(ctx context.Context, opts PrepareOptions) (Summary, error) {
	ctx, logger := w.runContext(ctx, "prepare")
	summary := newSummary("prepare", "prepared", "skipped", "errors")

	files, err := w.inputFiles(opts.File)
	if err != nil {
		return *summary, err
	}
	if len(files) == 0 {
		w.send(Event{Type: EventInfo, Message: "No audio files to prepare."})
		return w.finish(ctx, summary, "Prepare complete")
	}

	sums, hashErrs := w.hashAll(ctx, files)
	for i, path := range files {
		if stopped(ctx) {
			break
		}
		if hashErrs[i] != nil {
			w.fail(logger, summary, "errors", path, "Prepare error", hashErrs[i])
			continue
		}
		w.prepareOne(ctx, summary, path, sums[i], opts.Force)
	}
	return w.finish(ctx, summary, "Prepare complete")
}

func (w *Workflow) prepareOne(ctx context.Context, summary *Summary, path, d string, force bool) {
	fctx := fileContext(ctx, "prepare", d)
	logger := logging.WithContext(fctx, w.logger)
	name := filepath.Base(path)

	decision, cached, err := w.planner.Prepare(d, force)
	if err != nil {
		w.fail(logger, summary, "errors", path, "Prepare error", err)
		return
	}
	if decision.Skip {
		logger.Debug("prepare decision", logging.Args(logging.DecisionAttrs("prepare", "skip", decision.Reason)...)...)
		summary.add("skipped")
		w.metrics.File(summary.Run, "skipped")
		w.fileEvent(EventSkipped, path, "Skipped "+name+" (already prepared)", map[string]any{"prepared_path": cached})
		return
	}

	w.fileEvent(EventProcessing, path, "Preparing "+name, nil)
	// Recordings placed in input/ by hand have no collect-time metadata.
	if _, err := w.loadMetadata(services.WithStage(fctx, "metadata"), path, d); err != nil {
		w.fail(logger, summary, "errors", path, "Prepare error", err)
		return
	}
	target, err := w.cache.PreparedPath(d, name)
	if err != nil {
		w.fail(logger, summary, "errors", path, "Prepare error", err)
		return
	}
	start := w.now()
	if err := w.deps.Transcoder.Prepare(fctx, path, target); err != nil {
		w.fail(logger, summary, "errors", path, "Prepare error", err)
		return
	}
	w.timeStage("prepare", start)
	summary.add("prepared")
	w.metrics.File(summary.Run, "prepared")
	logger.Info("audio prepared", logging.String("prepared_path", target))
	w.fileEvent(EventCompleted, path, "Prepared "+name, map[string]any{"prepared_path": target})
}
