// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and returns a Result holding the decoded streams and
// container format, including their metadata tags. The raw payload is kept
// so callers can persist it verbatim.
package ffprobe
