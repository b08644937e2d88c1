package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"voxnote/internal/fileutil"
	"voxnote/internal/logging"
)

// KeyFunc extracts the identity of a decoded JSON object. An empty string
// means the line has no key and is never matched.
type KeyFunc func(obj map[string]json.RawMessage) string

// Log is one JSON Lines file of entries of type T.
type Log[T any] struct {
	path   string
	key    KeyFunc
	logger *slog.Logger
}

// NewLog returns a Log stored at path using key to identify entries.
func NewLog[T any](path string, key KeyFunc, logger *slog.Logger) *Log[T] {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Log[T]{path: path, key: key, logger: logger}
}

// Path returns the backing file path.
func (l *Log[T]) Path() string { return l.path }

// Append writes entry as one line at the end of the file.
func (l *Log[T]) Append(entry T) error {
	return AppendLine(l.path, entry)
}

// AppendLine encodes v as one JSON line and appends it to path, creating the
// file and its directory when needed. HTML characters are not escaped.
func AppendLine(path string, v any) error {
	line, err := encodeLine(v)
	if err != nil {
		return fmt.Errorf("encode %s entry: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	torn, err := endsMidLine(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("inspect %s: %w", path, err)
	}
	if torn {
		// A crash mid-write left an unterminated line; start a new one.
		line = append([]byte{'\n'}, line...)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}

// endsMidLine reports whether f is non-empty and its last byte is not a
// newline.
func endsMidLine(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

// Upsert removes every entry for key and appends entry. A failed purge is
// logged and the entry is still appended; Find returns the last match so the
// new entry wins either way.
func (l *Log[T]) Upsert(key string, entry T) error {
	if _, err := l.Purge(key); err != nil {
		logging.WarnWithContext(l.logger, "ledger purge failed before upsert", "ledger_purge_failed",
			logging.String("ledger", filepath.Base(l.path)),
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldImpact, "an older entry for this key remains in the file"),
			logging.String(logging.FieldErrorHint, "check permissions on the state directory"),
		)
	}
	return l.Append(entry)
}

// Find returns the last entry whose key matches.
func (l *Log[T]) Find(key string) (T, bool, error) {
	var (
		found T
		ok    bool
	)
	err := l.scan(func(obj map[string]json.RawMessage, raw []byte) {
		if key == "" || l.key(obj) != key {
			return
		}
		var entry T
		if err := json.Unmarshal(raw, &entry); err != nil {
			return
		}
		found, ok = entry, true
	})
	return found, ok, err
}

// Keys returns the set of keys present in the file.
func (l *Log[T]) Keys() (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	err := l.scan(func(obj map[string]json.RawMessage, _ []byte) {
		if k := l.key(obj); k != "" {
			keys[k] = struct{}{}
		}
	})
	return keys, err
}

// All decodes every well-formed entry in file order.
func (l *Log[T]) All() ([]T, error) {
	var out []T
	err := l.scan(func(_ map[string]json.RawMessage, raw []byte) {
		var entry T
		if err := json.Unmarshal(raw, &entry); err != nil {
			return
		}
		out = append(out, entry)
	})
	return out, err
}

// Purge removes every entry for key. Blank lines are dropped, malformed and
// non-object lines are kept verbatim. The file is rewritten atomically only
// when something was removed, and deleted when nothing remains. It reports
// whether any entry was removed.
func (l *Log[T]) Purge(key string) (bool, error) {
	lines, err := l.readLines()
	if err != nil || len(lines) == 0 {
		return false, err
	}

	kept := make([][]byte, 0, len(lines))
	changed := false
	for _, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil || obj == nil {
			kept = append(kept, line)
			continue
		}
		if key != "" && l.key(obj) == key {
			changed = true
			continue
		}
		kept = append(kept, line)
	}

	if !changed {
		return false, nil
	}
	if len(kept) == 0 {
		if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return true, fmt.Errorf("remove empty %s: %w", l.path, err)
		}
		return true, nil
	}
	data := append(bytes.Join(kept, []byte("\n")), '\n')
	if err := fileutil.WriteFileAtomic(l.path, data, 0o644); err != nil {
		return true, fmt.Errorf("rewrite %s: %w", l.path, err)
	}
	return true, nil
}

func (l *Log[T]) scan(fn func(obj map[string]json.RawMessage, raw []byte)) error {
	lines, err := l.readLines()
	if err != nil {
		return err
	}
	for _, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil || obj == nil {
			continue
		}
		fn(obj, trimmed)
	}
	return nil
}

func (l *Log[T]) readLines() ([][]byte, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	data = bytes.TrimRight(data, "\r\n")
	if len(data) == 0 {
		return nil, nil
	}
	return bytes.Split(data, []byte("\n")), nil
}

func encodeLine(entry any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StringField returns obj[name] when it is a non-empty JSON string.
func StringField(obj map[string]json.RawMessage, name string) string {
	raw, ok := obj[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
