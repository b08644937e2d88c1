package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"

	"voxnote/internal/digest"
	"voxnote/internal/ledger"
	"voxnote/internal/logging"
	"voxnote/internal/metadata"
	"voxnote/internal/organizer"
	"voxnote/internal/planner"
	"voxnote/internal/services"
)

// ProcessOptions selects what process works on.
type ProcessOptions struct {
	File  string
	Force bool
	// ShowMetadata attaches the metadata summary to the metadata event and
	// embeds it in the note.
	ShowMetadata bool
}

// Process transcribes, analyzes, and organizes each input recording.
// Transcription text is saved in the failed ledger when analysis or
// organization fails so the next run skips straight to analysis.
func (w *Workflow) Process(ctx context.Context, opts ProcessOptions) (Summary, error) {
	ctx, logger := w.runContext(ctx, "process")
	summary := newSummary("process", "processed", "skipped", "failed")

	files, err := w.inputFiles(opts.File)
	if err != nil {
		return *summary, err
	}
	if len(files) == 0 {
		w.send(Event{Type: EventInfo, Message: "No audio files to process."})
		return w.finish(ctx, summary, "Processing complete")
	}

	sums, hashErrs := w.hashAll(ctx, files)
	for i, path := range files {
		if stopped(ctx) {
			break
		}
		if hashErrs[i] != nil {
			w.fail(logger, summary, "failed", path, "Processing error", hashErrs[i])
			continue
		}
		w.processOne(ctx, summary, path, sums[i], opts)
	}
	return w.finish(ctx, summary, "Processing complete")
}

func (w *Workflow) processOne(ctx context.Context, summary *Summary, path, d string, opts ProcessOptions) {
	fctx := fileContext(ctx, "process", d)
	logger := logging.WithContext(fctx, w.logger)
	name := filepath.Base(path)

	decision, err := w.planner.Process(d, opts.Force)
	if err != nil {
		w.fail(logger, summary, "failed", path, "Processing error", err)
		return
	}
	if decision.Skip {
		logger.Debug("process decision", logging.Args(logging.DecisionAttrs("process", "skip", decision.Reason)...)...)
		summary.add("skipped")
		w.metrics.File(summary.Run, "skipped")
		w.fileEvent(EventSkipped, path, "Skipped "+name+" (already processed)", nil)
		return
	}
	logger.Debug("process decision", logging.Args(logging.DecisionAttrs("process", "run", decision.Reason)...)...)
	if decision.Reason == planner.ReasonTrimmedChanged {
		w.fileEvent(EventInfo, path, "Reprocessing "+name+" (trimmed cache changed)", nil)
	}
	w.fileEvent(EventProcessing, path, "Processing "+name, nil)

	meta, err := w.loadMetadata(services.WithStage(fctx, "metadata"), path, d)
	if err != nil {
		w.fail(logger, summary, "failed", path, "Processing error", err)
		return
	}
	metaSummary := metadata.Summarize(meta)
	metaData := map[string]any{"recorded_at_source": meta.RecordedAtSource}
	var dump string
	if opts.ShowMetadata {
		metaData["summary"] = metaSummary
		if raw, err := json.MarshalIndent(metaSummary, "", "  "); err == nil {
			dump = string(raw)
		}
	}
	w.fileEvent(EventMetadata, path, "Metadata loaded", metaData)

	source, text, err := w.transcribe(services.WithStage(fctx, "transcribe"), path, d)
	if err != nil {
		w.fail(logger, summary, "failed", path, "Processing error", err)
		return
	}
	w.fileEvent(EventTranscribed, path, "Transcription complete", map[string]any{
		"source": string(source.Kind),
		"path":   source.Path,
	})

	start := w.now()
	analysis, err := w.deps.Analyzer.Analyze(services.WithStage(fctx, "analyze"), w.cfg.Prompts.SystemPrompt, text)
	if err != nil {
		w.saveFailed(logger, summary, path, text, "Analysis failed", err)
		return
	}
	w.timeStage("analyze", start)
	w.fileEvent(EventAnalyzed, path, "LLM analysis complete", map[string]any{
		"title":    analysis.Title,
		"category": analysis.Category,
	})

	recordedAt := meta.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = w.now()
	}
	start = w.now()
	note, err := w.deps.Organizer.Organize(services.WithStage(fctx, "organize"), organizer.Request{
		SourcePath:   path,
		Text:         text,
		Analysis:     analysis,
		RecordedAt:   recordedAt,
		MetadataDump: dump,
	})
	if err != nil {
		w.saveFailed(logger, summary, path, text, "Organize failed", err)
		return
	}
	w.timeStage("organize", start)

	if _, err := w.ledger.PurgeFailed(path); err != nil {
		logging.WarnWithContext(logger, "failed to clear saved transcription", "failed_purge",
			logging.Error(err),
			logging.String(logging.FieldImpact, "a stale failed entry remains in the ledger"),
			logging.String(logging.FieldErrorHint, "it is replaced the next time this path fails"),
		)
	}
	if err := w.recordProcessed(path, d, source, meta, note); err != nil {
		w.fail(logger, summary, "failed", path, "Processing error", err)
		return
	}

	summary.add("processed")
	w.metrics.File(summary.Run, "completed")
	w.fileEvent(EventCompleted, path, "Created note: "+filepath.Base(note.NotePath), map[string]any{
		"note_path":    note.NotePath,
		"archive_path": note.ArchivePath,
	})
}

// loadMetadata prefers metadata saved at collect time, which describes the
// source file before it was copied.
func (w *Workflow) loadMetadata(ctx context.Context, path, d string) (metadata.Metadata, error) {
	entry, ok, err := w.ledger.Metadata.Find(d)
	if err != nil {
		return metadata.Metadata{}, err
	}
	if ok {
		return metadata.FromEntry(entry), nil
	}
	start := w.now()
	meta, err := w.deps.Metadata.Collect(ctx, path)
	if err != nil {
		return metadata.Metadata{}, err
	}
	w.timeStage("metadata", start)
	if err := w.ledger.UpsertMetadata(meta.Entry(d, path, filepath.Base(path))); err != nil {
		return metadata.Metadata{}, err
	}
	return meta, nil
}

// transcribe returns saved text from a failed run or a fresh transcription
// of the best cached audio.
func (w *Workflow) transcribe(ctx context.Context, path, d string) (planner.TranscriptionSource, string, error) {
	source, err := w.planner.Transcription(path, d)
	if err != nil {
		return source, "", err
	}
	if source.Kind == planner.SourceFailedText {
		logging.WithContext(ctx, w.logger).Info("reusing saved transcription")
		return source, source.Text, nil
	}
	start := w.now()
	result, err := w.deps.Transcriber.TranscribeFile(ctx, source.Path)
	if err != nil {
		return source, "", err
	}
	w.timeStage("transcribe", start)
	return source, result.Text, nil
}

func (w *Workflow) saveFailed(logger *slog.Logger, summary *Summary, path, text, prefix string, cause error) {
	if err := w.ledger.UpsertFailed(ledger.FailedEntry{
		CreatedAt: ledger.NewTime(w.now()),
		AudioPath: path,
		Text:      text,
		Error:     cause.Error(),
	}); err != nil {
		logging.WarnWithContext(logger, "failed to save transcription", "failed_save",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next run transcribes this recording again"),
			logging.String(logging.FieldErrorHint, "check that the state directory is writable"),
		)
	}
	summary.add("failed")
	w.metrics.File(summary.Run, "error")
	message := services.WithHint(prefix+": "+cause.Error(), cause)
	logger.Error(prefix,
		logging.String(logging.FieldFile, path),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, services.Hint(cause)),
	)
	w.fileEvent(EventError, path, message, map[string]any{"error": cause.Error(), "saved_transcription": true})
}

// recordProcessed stores the processed entry. The transcribed hash is the
// original digest when the original audio or saved text was used.
func (w *Workflow) recordProcessed(path, d string, source planner.TranscriptionSource, meta metadata.Metadata, note organizer.NoteContext) error {
	transcribedHash := d
	if source.Kind != planner.SourceOriginal && source.Kind != planner.SourceFailedText {
		sum, err := digest.File(source.Path)
		if err != nil {
			return services.Wrap(services.ErrValidation, "process", "hash transcribed audio", source.Path, err)
		}
		transcribedHash = sum
	}
	entry := ledger.ProcessedEntry{
		ProcessedAt:         ledger.NewTime(w.now()),
		OriginalHash:        d,
		OriginalName:        filepath.Base(path),
		OriginalPath:        path,
		ArchivePath:         note.ArchivePath,
		NotePath:            note.NotePath,
		RecordedAtSource:    meta.RecordedAtSource,
		TranscribedFileHash: transcribedHash,
		TranscribedPath:     source.Path,
	}
	if !meta.RecordedAt.IsZero() {
		t := ledger.NewTime(meta.RecordedAt)
		entry.RecordedAt = &t
	}
	return w.ledger.UpsertProcessed(entry)
}
