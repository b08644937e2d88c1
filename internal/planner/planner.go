package planner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"voxnote/internal/audiocache"
	"voxnote/internal/digest"
	"voxnote/internal/ledger"
)

// Decision is the outcome of a skip check.
type Decision struct {
	Skip   bool
	Reason string
}

// Run is the decision to do the work.
func Run(reason string) Decision { return Decision{Reason: reason} }

// Skip is the decision to reuse cached work.
func Skip(reason string) Decision { return Decision{Skip: true, Reason: reason} }

// SourceKind names where transcription text or audio comes from.
type SourceKind string

const (
	SourceFailedText SourceKind = "failed_text"
	SourceTrimmed    SourceKind = "trimmed"
	SourcePrepared   SourceKind = "prepared"
	SourceOriginal   SourceKind = "original"
)

// TranscriptionSource is what the transcribe stage should read. Text is set
// only for SourceFailedText.
type TranscriptionSource struct {
	Kind SourceKind
	Path string
	Text string
}

// ReasonTrimmedChanged is the Process reason when a processed recording's
// trimmed cache no longer matches the audio that was transcribed.
const ReasonTrimmedChanged = "trimmed cache changed"

// Planner answers skip questions for one state directory.
type Planner struct {
	ledger *ledger.Ledger
	cache  *audiocache.Resolver
}

// New returns a planner over the given ledger and cache.
func New(l *ledger.Ledger, cache *audiocache.Resolver) *Planner {
	return &Planner{ledger: l, cache: cache}
}

// Collect skips digests already collected or processed.
func (p *Planner) Collect(d string, known map[string]struct{}) Decision {
	if _, ok := known[d]; ok {
		return Skip("already collected")
	}
	return Run("new recording")
}

// Prepare skips when a prepared WAV exists for the digest. The cached path is
// returned with a skip decision.
func (p *Planner) Prepare(d string, force bool) (Decision, string, error) {
	if force {
		return Run("forced"), "", nil
	}
	path, ok, err := p.cache.FindPrepared(d)
	if err != nil {
		return Decision{}, "", err
	}
	if ok {
		return Skip("already prepared"), path, nil
	}
	return Run("not prepared"), "", nil
}

// Trim skips when a non-empty trimmed WAV exists for the digest.
func (p *Planner) Trim(d string, force bool) Decision {
	if force {
		return Run("forced")
	}
	if _, ok := p.cache.TrimmedFile(d); ok {
		return Skip("already trimmed")
	}
	return Run("not trimmed")
}

// Process decides whether a recording must go through transcription,
// analysis, and organization. A processed digest stays complete unless its
// entry records the transcribed audio hash and the trimmed cache now exists
// with different content.
func (p *Planner) Process(d string, force bool) (Decision, error) {
	if force {
		return Run("forced"), nil
	}
	entry, ok, err := p.ledger.Processed.Find(d)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Run("not processed"), nil
	}
	if entry.TranscribedFileHash == "" {
		return Skip("already processed"), nil
	}
	// Existence alone gates the comparison; an empty trimmed file hashes
	// differently from any recorded speech.
	trimmed, _ := p.cache.TrimmedFile(d)
	if _, err := os.Stat(trimmed); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Skip("already processed"), nil
		}
		return Decision{}, fmt.Errorf("stat trimmed cache: %w", err)
	}
	current, err := digest.File(trimmed)
	if err != nil {
		return Decision{}, fmt.Errorf("hash trimmed cache: %w", err)
	}
	if current == entry.TranscribedFileHash {
		return Skip("already processed"), nil
	}
	return Run(ReasonTrimmedChanged), nil
}

// Transcription picks the transcription input: saved text from a failed
// run, then the trimmed cache, then the prepared cache, then the original.
func (p *Planner) Transcription(originalPath, d string) (TranscriptionSource, error) {
	text, ok, err := p.ledger.FailedText(originalPath)
	if err != nil {
		return TranscriptionSource{}, err
	}
	if ok {
		return TranscriptionSource{Kind: SourceFailedText, Path: originalPath, Text: text}, nil
	}
	if trimmed, ok := p.cache.TrimmedFile(d); ok {
		return TranscriptionSource{Kind: SourceTrimmed, Path: trimmed}, nil
	}
	prepared, ok, err := p.cache.FindPrepared(d)
	if err != nil {
		return TranscriptionSource{}, err
	}
	if ok {
		return TranscriptionSource{Kind: SourcePrepared, Path: prepared}, nil
	}
	return TranscriptionSource{Kind: SourceOriginal, Path: originalPath}, nil
}
