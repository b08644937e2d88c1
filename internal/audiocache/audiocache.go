// Package audiocache resolves where derived audio lives in the state directory.
//
// Prepared (denoised, normalized) audio is stored as
// prepared/<digest>_<slug>.wav; the slug only helps humans browsing the
// directory, so lookups match any <digest>_*.wav. Trimmed audio is stored as
// trimmed/<digest>.wav. Directories are created lazily when a path is built.
package audiocache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"voxnote/internal/fileutil"
	"voxnote/internal/textutil"
)

const (
	preparedDir = "prepared"
	trimmedDir  = "trimmed"
)

var digestPrefix = regexp.MustCompile(`^([0-9a-f]{64})_(.+)$`)

// Resolver builds cache paths under a state directory.
type Resolver struct {
	stateDir string
}

// New returns a Resolver rooted at stateDir.
func New(stateDir string) *Resolver {
	return &Resolver{stateDir: stateDir}
}

// PreparedDir returns the prepared cache directory.
func (r *Resolver) PreparedDir() string { return filepath.Join(r.stateDir, preparedDir) }

// TrimmedDir returns the trimmed cache directory.
func (r *Resolver) TrimmedDir() string { return filepath.Join(r.stateDir, trimmedDir) }

// StripDigestPrefix splits a "<digest>_<rest>" file name. It returns the
// digest and the remainder, or "" and the name unchanged when no prefix is present.
func StripDigestPrefix(name string) (string, string) {
	m := digestPrefix.FindStringSubmatch(name)
	if m == nil {
		return "", name
	}
	return m[1], m[2]
}

// PreparedPath returns prepared/<digest>_<slug>.wav for a recording. A
// collect-time digest prefix on originalName is ignored when deriving the slug.
func (r *Resolver) PreparedPath(digest, originalName string) (string, error) {
	dir := r.PreparedDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create prepared cache dir: %w", err)
	}
	_, rest := StripDigestPrefix(filepath.Base(originalName))
	stem := strings.TrimSuffix(rest, filepath.Ext(rest))
	if stem == "" {
		stem = "audio"
	}
	return filepath.Join(dir, digest+"_"+textutil.Slug(stem, "audio")+".wav"), nil
}

// FindPrepared returns the most recently modified prepared file for digest.
// A missing cache directory is not an error.
func (r *Resolver) FindPrepared(digest string) (string, bool, error) {
	dir := r.PreparedDir()
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("stat prepared cache dir: %w", err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, digest+"_*.wav"))
	if err != nil {
		return "", false, fmt.Errorf("glob prepared cache: %w", err)
	}
	var newest string
	var newestMod int64
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = match, mod
		}
	}
	return newest, newest != "", nil
}

// TrimmedPath returns trimmed/<digest>.wav, creating the directory.
func (r *Resolver) TrimmedPath(digest string) (string, error) {
	dir := r.TrimmedDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create trimmed cache dir: %w", err)
	}
	return filepath.Join(dir, digest+".wav"), nil
}

// TrimmedFile returns the trimmed cache path without creating anything and
// reports whether it exists with non-zero size.
func (r *Resolver) TrimmedFile(digest string) (string, bool) {
	path := filepath.Join(r.TrimmedDir(), digest+".wav")
	return path, fileutil.NonEmpty(path)
}
