package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voxnote/internal/digest"
	"voxnote/internal/services"
)

// inputFiles returns the files a run works on: the single resolved file
// when one is given, otherwise every supported file directly in input/.
func (w *Workflow) inputFiles(file string) ([]string, error) {
	if strings.TrimSpace(file) != "" {
		path, err := w.resolveInput(file)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}
	root, err := w.inputRoot()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "input", "list input", root, err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if w.cfg.SupportsFile(entry.Name()) {
			files = append(files, filepath.Join(root, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (w *Workflow) inputRoot() (string, error) {
	root, err := filepath.Abs(w.cfg.Paths.Input)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	return root, nil
}

// resolveInput resolves a --file argument. Relative paths that do not exist
// from the working directory are tried relative to input/.
func (w *Workflow) resolveInput(file string) (string, error) {
	candidate := file
	if !filepath.IsAbs(candidate) {
		if _, err := os.Stat(candidate); err != nil {
			candidate = filepath.Join(w.cfg.Paths.Input, file)
		}
	}
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "input", "resolve file",
			fmt.Sprintf("audio file not found: %s; check that the file exists and the path is correct", file), err)
	}
	if err := w.assertInInput(resolved); err != nil {
		return "", err
	}
	if !w.cfg.SupportsFile(resolved) {
		return "", services.Wrap(services.ErrValidation, "input", "check format",
			fmt.Sprintf("unsupported audio format %q; supported formats: %s; convert the file or add the format to processing.supported_formats",
				strings.TrimPrefix(strings.ToLower(filepath.Ext(resolved)), "."),
				strings.Join(w.cfg.Processing.SupportedFormats, ", ")), nil)
	}
	return resolved, nil
}

// assertInInput rejects paths outside input/.
func (w *Workflow) assertInInput(path string) error {
	root, err := w.inputRoot()
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return services.Wrap(services.ErrValidation, "input", "check location",
			fmt.Sprintf("file must be inside input/ (file: %s, input directory: %s); move the file to input/ or pass a path relative to it", path, root), nil)
	}
	return nil
}

// hashAll digests paths concurrently. If the batch fails, each file is
// hashed on its own so one unreadable file only fails itself.
func (w *Workflow) hashAll(ctx context.Context, paths []string) ([]string, []error) {
	errs := make([]error, len(paths))
	sums, err := digest.All(ctx, paths, w.hashWorkers)
	if err == nil {
		return sums, errs
	}
	sums = make([]string, len(paths))
	for i, path := range paths {
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			continue
		}
		sums[i], errs[i] = digest.File(path)
	}
	return sums, errs
}
