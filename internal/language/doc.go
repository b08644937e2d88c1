// Package language normalizes the transcription language setting.
//
// The speech-to-text tool accepts either an ISO 639-1 code or automatic
// detection. Config values, CLI flags, and container tags may use 3-letter
// codes or full words; everything funnels through here before reaching the
// transcriber or the note header.
package language
