package ledger

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

// File names inside the state directory.
const (
	ProcessedFile = "processed_audio.jsonl"
	FailedFile    = "failed_transcriptions.jsonl"
	CollectedFile = "collected_audio.jsonl"
	MetadataFile  = "original_metadata.jsonl"
)

// Ledger groups the four state logs of one state directory.
type Ledger struct {
	Processed *Log[ProcessedEntry]
	Failed    *Log[FailedEntry]
	Collected *Log[CollectedEntry]
	Metadata  *Log[MetadataEntry]
}

// Open returns the ledger rooted at stateDir. Files are created on first write.
func Open(stateDir string, logger *slog.Logger) *Ledger {
	return &Ledger{
		Processed: NewLog[ProcessedEntry](filepath.Join(stateDir, ProcessedFile), processedKey, logger),
		Failed:    NewLog[FailedEntry](filepath.Join(stateDir, FailedFile), failedKey, logger),
		Collected: NewLog[CollectedEntry](filepath.Join(stateDir, CollectedFile), originalHashKey, logger),
		Metadata:  NewLog[MetadataEntry](filepath.Join(stateDir, MetadataFile), originalHashKey, logger),
	}
}

func originalHashKey(obj map[string]json.RawMessage) string {
	return StringField(obj, "original_hash")
}

// processedKey also accepts the legacy "file_hash" field.
func processedKey(obj map[string]json.RawMessage) string {
	if key := StringField(obj, "original_hash"); key != "" {
		return key
	}
	return StringField(obj, "file_hash")
}

func failedKey(obj map[string]json.RawMessage) string {
	stored := StringField(obj, "audio_path")
	if stored == "" {
		return ""
	}
	return NormalizePath(stored)
}

// NormalizePath returns the absolute, symlink-resolved form of path used as
// the failed-transcription key. Resolution is best-effort: a path that no
// longer exists is returned in absolute form.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	if len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == '\\') {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if resolvedDir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(resolvedDir, filepath.Base(abs))
	}
	return abs
}

// KnownDigests returns the union of collected and processed digests.
func (l *Ledger) KnownDigests() (map[string]struct{}, error) {
	known, err := l.Collected.Keys()
	if err != nil {
		return nil, err
	}
	processed, err := l.Processed.Keys()
	if err != nil {
		return nil, err
	}
	for k := range processed {
		known[k] = struct{}{}
	}
	return known, nil
}

// UpsertProcessed stores entry as the only processed entry for its digest.
func (l *Ledger) UpsertProcessed(entry ProcessedEntry) error {
	return l.Processed.Upsert(entry.OriginalHash, entry)
}

// UpsertFailed stores entry as the only failed entry for its audio path. The
// stored path is normalized so lookups match regardless of symlinks.
func (l *Ledger) UpsertFailed(entry FailedEntry) error {
	entry.AudioPath = NormalizePath(entry.AudioPath)
	return l.Failed.Upsert(entry.AudioPath, entry)
}

// FailedText returns saved transcription text for audioPath.
func (l *Ledger) FailedText(audioPath string) (string, bool, error) {
	entry, ok, err := l.Failed.Find(NormalizePath(audioPath))
	if err != nil || !ok {
		return "", false, err
	}
	return entry.Text, true, nil
}

// PurgeFailed removes saved transcription text for audioPath.
func (l *Ledger) PurgeFailed(audioPath string) (bool, error) {
	return l.Failed.Purge(NormalizePath(audioPath))
}

// UpsertMetadata stores entry as the only metadata entry for its digest.
func (l *Ledger) UpsertMetadata(entry MetadataEntry) error {
	return l.Metadata.Upsert(entry.OriginalHash, entry)
}

// Counts summarizes how many distinct keys each log holds.
type Counts struct {
	Collected int
	Processed int
	Failed    int
}

// Counts returns distinct key counts for status output.
func (l *Ledger) Counts() (Counts, error) {
	var c Counts
	collected, err := l.Collected.Keys()
	if err != nil {
		return c, err
	}
	processed, err := l.Processed.Keys()
	if err != nil {
		return c, err
	}
	failed, err := l.Failed.Keys()
	if err != nil {
		return c, err
	}
	c.Collected, c.Processed, c.Failed = len(collected), len(processed), len(failed)
	return c, nil
}
