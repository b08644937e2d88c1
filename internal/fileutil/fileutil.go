package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// CopyFilePreserve copies src to dst keeping the permission bits and the
// modification time of src. Recording timestamps are the last fallback for
// "recorded at", so collected copies must not reset them.
//
// The bytes go to a hidden temp file beside dst that is renamed into place
// only after the hash check, chmod, and chtimes succeed. On any failure dst
// is left as it was.
func CopyFilePreserve(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("copy %s: not a regular file", src)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmpName)
		}
	}()

	if err := copyVerified(src, info.Size(), tmp); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	if err := os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("preserve times on %s: %w", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return err
	}
	keep = true
	return nil
}

// copyVerified streams src into out, checking size and SHA-256 of what was
// read against what was written. out is closed in every case.
func copyVerified(src string, size int64, out *os.File) error {
	in, err := os.Open(src)
	if err != nil {
		_ = out.Close()
		return err
	}
	defer in.Close()

	srcHash, dstHash := sha256.New(), sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHash), io.TeeReader(in, srcHash))
	if err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if written != size {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", size, written)
	}
	if !bytes.Equal(srcHash.Sum(nil), dstHash.Sum(nil)) {
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// MoveFile renames src to dst. When the two paths live on different
// filesystems the file is copied (times preserved) and src removed.
func MoveFile(src, dst string) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	if !IsCrossDevice(renameErr) {
		return renameErr
	}
	if err := CopyFilePreserve(src, dst); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("copy across filesystems: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove %s after cross-device copy: %w", src, err)
	}
	return nil
}

// IsCrossDevice reports whether err is a rename failure caused by src and dst
// being on different filesystems.
func IsCrossDevice(err error) bool {
	var linkErr *os.LinkError
	return errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV)
}

// WriteFileAtomic writes data to a temp file beside path and renames it into
// place, so readers observe either the old or the new content.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// NonEmpty reports whether path exists as a regular file with size > 0.
func NonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
