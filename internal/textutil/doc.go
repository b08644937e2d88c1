// Package textutil provides text helpers shared by the cache resolver, the
// note organizer, and the transcriber.
//
// The primary use cases are:
//   - Building filesystem-safe slugs from titles, categories, and file stems
//   - Cleaning repeated lines that speech-to-text models emit on silence
package textutil
