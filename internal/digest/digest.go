// Package digest computes content identities for audio files.
//
// A file's identity is the lowercase hex SHA-256 of its bytes. Every ledger
// entry and cache file is keyed by it, so renaming or re-collecting a
// recording never changes how the pipeline sees it.
package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
)

// ChunkSize is the read buffer used while streaming a file through the hash.
const ChunkSize = 64 * 1024

// Length is the number of hex characters in a digest.
const Length = 64

// File streams path through SHA-256 and returns the lowercase hex digest.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("digest: open %s: %w", path, err)
	}
	defer f.Close()
	return Reader(f)
}

// Reader hashes everything read from r.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("digest: read: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Bytes hashes an in-memory payload.
func Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// String hashes the UTF-8 bytes of s.
func String(s string) string {
	return Bytes([]byte(s))
}

// Valid reports whether s is a well-formed digest (64 lowercase hex characters).
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// All hashes paths with at most limit concurrent readers and returns the
// digests in input order. Hashing is read-only, so planning a batch can
// overlap disk reads; the first failure cancels the remaining work.
func All(ctx context.Context, paths []string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 1
	}
	out := make([]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := File(path)
			if err != nil {
				return err
			}
			out[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
