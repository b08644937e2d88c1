package workflow

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"voxnote/internal/ledger"
	"voxnote/internal/logging"
	"voxnote/internal/planner"
	"voxnote/internal/services"
)

// CollectOptions selects what collect scans.
type CollectOptions struct {
	// Sources replaces the configured source list when non-empty.
	Sources       []string
	RecursiveMode planner.RecursiveMode
}

// Collect copies new recordings from the source directories into
// input/<digest>_<name>, saving their original metadata first.
func (w *Workflow) Collect(ctx context.Context, opts CollectOptions) (Summary, error) {
	ctx, logger := w.runContext(ctx, "collect")
	summary := newSummary("collect", "copied", "skipped", "errors")

	plan, err := planner.BuildSourcePlan(w.cfg, opts.Sources, opts.RecursiveMode)
	if err != nil {
		return *summary, err
	}
	w.send(Event{Type: EventPlan, Message: "Collect plan", Data: map[string]any{"sources": plan}})
	if len(plan) == 0 {
		w.send(Event{Type: EventInfo, Message: "No sources configured. Add [[sources]] to the config or pass --source."})
		return w.finish(ctx, summary, "Collect complete")
	}

	known, err := w.ledger.KnownDigests()
	if err != nil {
		return *summary, err
	}
	if err := os.MkdirAll(w.cfg.Paths.Input, 0o755); err != nil {
		return *summary, services.Wrap(services.ErrValidation, "collect", "create input dir", w.cfg.Paths.Input, err)
	}

	for _, source := range plan {
		if stopped(ctx) {
			break
		}
		files, err := w.sourceFiles(source)
		if err != nil {
			logging.WarnWithContext(logger, "source directory unavailable", "collect_source_missing",
				logging.String("source", source.Dir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "recordings in this source are not collected"),
				logging.String(logging.FieldErrorHint, "check the path or mount the volume"),
			)
			w.send(Event{Type: EventWarning, Message: "Source not found: " + source.Dir, File: source.Dir})
			continue
		}
		var supported []string
		for _, path := range files {
			if w.cfg.SupportsFile(path) {
				supported = append(supported, path)
				continue
			}
			// Ignored files are reported but not counted.
			w.fileEvent(EventSkipped, path, "Ignored "+filepath.Base(path)+" (unsupported format)", nil)
		}
		sums, hashErrs := w.hashAll(ctx, supported)
		for i, path := range supported {
			if stopped(ctx) {
				break
			}
			if hashErrs[i] != nil {
				w.fail(logger, summary, "errors", path, "Collect error", hashErrs[i])
				continue
			}
			w.collectOne(ctx, summary, known, path, sums[i])
		}
	}
	return w.finish(ctx, summary, "Collect complete")
}

func (w *Workflow) collectOne(ctx context.Context, summary *Summary, known map[string]struct{}, path, d string) {
	fctx := fileContext(ctx, "collect", d)
	logger := logging.WithContext(fctx, w.logger)

	decision := w.planner.Collect(d, known)
	name := filepath.Base(path)
	target := filepath.Join(w.cfg.Paths.Input, d+"_"+name)
	if !decision.Skip {
		if _, err := os.Stat(target); err == nil {
			decision = planner.Skip("target exists in input")
		}
	}
	if decision.Skip {
		logger.Debug("collect decision", logging.Args(logging.DecisionAttrs("collect", "skip", decision.Reason)...)...)
		summary.add("skipped")
		w.metrics.File(summary.Run, "skipped")
		return
	}

	meta, err := w.deps.Metadata.Collect(fctx, path)
	if err != nil {
		w.fail(logger, summary, "errors", path, "Collect error", err)
		return
	}
	if err := w.ledger.UpsertMetadata(meta.Entry(d, path, name)); err != nil {
		w.fail(logger, summary, "errors", path, "Collect error", err)
		return
	}
	if err := w.copyFile(path, target); err != nil {
		// A partial target would read as "already in input" on the next run.
		if rmErr := os.Remove(target); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Debug("partial copy cleanup failed", logging.String("path", target), logging.Error(rmErr))
		}
		w.fail(logger, summary, "errors", path, "Collect error", services.Wrap(services.ErrValidation, "collect", "copy", target, err))
		return
	}
	if err := w.ledger.Collected.Append(ledger.CollectedEntry{
		CollectedAt:        ledger.Now(),
		OriginalHash:       d,
		OriginalSourcePath: path,
		OriginalSourceName: name,
		InputPath:          target,
	}); err != nil {
		w.fail(logger, summary, "errors", path, "Collect error", err)
		return
	}
	known[d] = struct{}{}
	summary.add("copied")
	w.metrics.File(summary.Run, "copied")
	logger.Info("recording collected", logging.String("source", path), logging.String("input_path", target))
	w.fileEvent(EventCompleted, path, "Copied "+name, map[string]any{"input_path": target})
}

// sourceFiles lists regular files under a source directory in sorted order.
func (w *Workflow) sourceFiles(source planner.SourcePlan) ([]string, error) {
	info, err := os.Stat(source.Dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "collect", Path: source.Dir, Err: errors.New("not a directory")}
	}
	var files []string
	if !source.Recursive {
		entries, err := os.ReadDir(source.Dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				files = append(files, filepath.Join(source.Dir, entry.Name()))
			}
		}
		sort.Strings(files)
		return files, nil
	}
	err = filepath.WalkDir(source.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == source.Dir {
				return err
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
