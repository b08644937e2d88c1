package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestCopyFilePreserveCopiesContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	if err := os.WriteFile(src, []byte("verified copy content"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFilePreserve(src, dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "verified copy content" {
		t.Fatalf("content mismatch: got %q", got)
	}
	assertNoTempFiles(t, dir)
}

func TestCopyFilePreserveFailureLeavesNoTarget(t *testing.T) {
	tests := []struct {
		name string
		src  func(dir string) string
	}{
		{"missing source", func(dir string) string { return filepath.Join(dir, "nope") }},
		{"directory source", func(dir string) string {
			sub := filepath.Join(dir, "sub")
			if err := os.Mkdir(sub, 0o755); err != nil {
				t.Fatal(err)
			}
			return sub
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			dst := filepath.Join(dir, "dst.bin")
			if err := CopyFilePreserve(tt.src(dir), dst); err == nil {
				t.Fatal("expected copy error")
			}
			if _, err := os.Stat(dst); !os.IsNotExist(err) {
				t.Fatalf("expected no target after failed copy, stat err=%v", err)
			}
			assertNoTempFiles(t, dir)
		})
	}
}

func TestCopyVerifiedDetectsShortCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	if err := os.WriteFile(src, []byte("four"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := os.Create(filepath.Join(dir, "out.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if err := copyVerified(src, 10, out); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	parts, _ := filepath.Glob(filepath.Join(dir, ".*.part"))
	if len(parts) != 0 {
		t.Fatalf("temp files left behind: %v", parts)
	}
}

func TestCopyFilePreserveKeepsModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "memo.m4a")
	dst := filepath.Join(dir, "copy.m4a")
	if err := os.WriteFile(src, []byte("audio"), 0o600); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2023, 5, 1, 10, 30, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if err := CopyFilePreserve(src, dst); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Fatalf("mtime not preserved: got %v want %v", info.ModTime(), mtime)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode not preserved: %o", info.Mode().Perm())
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.wav")
	dst := filepath.Join(dir, "sub", "b.wav")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("pcm"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, got %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "pcm" {
		t.Fatalf("unexpected destination content %q (%v)", got, err)
	}
}

func TestMoveFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := MoveFile(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
	if err == nil {
		t.Fatal("expected error")
	}
	if IsCrossDevice(err) {
		t.Fatal("missing source must not be classified as cross-device")
	}
}

func TestIsCrossDevice(t *testing.T) {
	err := &os.LinkError{Op: "rename", Old: "a", New: "b", Err: syscall.EXDEV}
	if !IsCrossDevice(err) {
		t.Fatal("expected EXDEV to be detected")
	}
	if IsCrossDevice(errors.New("other")) {
		t.Fatal("unexpected cross-device classification")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("new\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "new\n" {
		t.Fatalf("unexpected content %q (%v)", got, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file cleaned up, found %d entries", len(entries))
	}
}

func TestNonEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	full := filepath.Join(dir, "full")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if NonEmpty(empty) || !NonEmpty(full) || NonEmpty(filepath.Join(dir, "missing")) || NonEmpty(dir) {
		t.Fatal("unexpected NonEmpty results")
	}
}
