package workflow

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxnote/internal/config"
	"voxnote/internal/digest"
	"voxnote/internal/fileutil"
	"voxnote/internal/media/ffmpeg"
	"voxnote/internal/media/vad"
	"voxnote/internal/metadata"
	"voxnote/internal/metrics"
	"voxnote/internal/organizer"
	"voxnote/internal/planner"
	"voxnote/internal/services"
	"voxnote/internal/services/llm"
	"voxnote/internal/services/whisper"
	"voxnote/internal/testsupport"
)

type fakeTranscoder struct {
	prepared []string
	decoded  []string
	trims    [][]ffmpeg.Interval
}

func (f *fakeTranscoder) Prepare(_ context.Context, original, target string) error {
	f.prepared = append(f.prepared, original)
	return fileutil.CopyFilePreserve(original, target)
}

func (f *fakeTranscoder) Decode(_ context.Context, in, out string) error {
	f.decoded = append(f.decoded, in)
	return fileutil.CopyFilePreserve(in, out)
}

func (f *fakeTranscoder) Trim(_ context.Context, _, out string, segments []ffmpeg.Interval, _ int) ([]ffmpeg.Interval, error) {
	f.trims = append(f.trims, segments)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, err
	}
	return segments, os.WriteFile(out, []byte("trimmed-audio"), 0o644)
}

type fakeTranscriber struct {
	paths []string
	text  string
}

func (f *fakeTranscriber) TranscribeFile(_ context.Context, path string) (whisper.Result, error) {
	f.paths = append(f.paths, path)
	return whisper.Result{AudioPath: path, Text: f.text}, nil
}

type fakeAnalyzer struct {
	calls    int
	prompts  []string
	err      error
	analysis llm.Analysis
}

func (f *fakeAnalyzer) Analyze(_ context.Context, systemPrompt, _ string) (llm.Analysis, error) {
	f.calls++
	f.prompts = append(f.prompts, systemPrompt)
	if f.err != nil {
		return llm.Analysis{}, f.err
	}
	return f.analysis, nil
}

type fakeMetadata struct{ calls int }

func (f *fakeMetadata) Collect(_ context.Context, _ string) (metadata.Metadata, error) {
	f.calls++
	return metadata.Metadata{
		RecordedAt:       time.Date(2024, 5, 2, 10, 15, 30, 0, time.UTC),
		RecordedAtSource: metadata.SourceMtime,
	}, nil
}

type harness struct {
	cfg         *config.Config
	wf          *Workflow
	transcoder  *fakeTranscoder
	transcriber *fakeTranscriber
	analyzer    *fakeAnalyzer
	meta        *fakeMetadata
	recorder    *metrics.Recorder
	events      []Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Prompts.SystemPrompt = "Return JSON."

	h := &harness{
		cfg:         cfg,
		transcoder:  &fakeTranscoder{},
		transcriber: &fakeTranscriber{text: "hello world"},
		analyzer:    &fakeAnalyzer{analysis: llm.Analysis{Title: "T", Category: "C"}},
		meta:        &fakeMetadata{},
		recorder:    metrics.New(),
	}
	deps := Dependencies{
		Transcoder: h.transcoder,
		NewDetector: func(p vad.Params) (SpeechDetector, error) {
			return vad.NewDetector(vad.BackendEnergy, p)
		},
		Transcriber: h.transcriber,
		Analyzer:    h.analyzer,
		Metadata:    h.meta,
		Organizer:   organizer.New(cfg, nil),
	}
	h.wf = New(cfg, deps, nil,
		WithEmitter(func(ev Event) { h.events = append(h.events, ev) }),
		WithMetrics(h.recorder),
	)
	return h
}

func (h *harness) eventsOf(typ EventType) []Event {
	var out []Event
	for _, ev := range h.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// speechWAV is silence with a 220 Hz tone from speechStart to speechEnd.
func speechWAV(t *testing.T, path string, total, speechStart, speechEnd float64) {
	t.Helper()
	testsupport.WriteSpeechWAV(t, path, total, testsupport.Span{Start: speechStart, End: speechEnd})
}

func TestPipelineEndToEnd(t *testing.T) {
	h := newHarness(t)
	input := filepath.Join(h.cfg.Paths.Input, "memo.wav")
	speechWAV(t, input, 10, 2, 4)
	original, err := digest.File(input)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	prep, err := h.wf.Prepare(ctx, PrepareOptions{})
	if err != nil || prep.Get("prepared") != 1 {
		t.Fatalf("Prepare = %s, %v", prep, err)
	}

	trim, err := h.wf.Trim(ctx, TrimOptions{})
	if err != nil || trim.Get("processed") != 1 {
		t.Fatalf("Trim = %s, %v", trim, err)
	}
	if len(h.transcoder.decoded) != 0 {
		t.Fatal("expected trim to reuse the prepared cache")
	}
	if len(h.transcoder.trims) != 1 || len(h.transcoder.trims[0]) != 1 {
		t.Fatalf("unexpected trim segments %+v", h.transcoder.trims)
	}
	seg := h.transcoder.trims[0][0]
	if math.Abs(seg.Start-2) > 0.05 || math.Abs(seg.End-4) > 0.05 {
		t.Fatalf("expected speech near [2,4], got %+v", seg)
	}
	trimmed, ok := h.wf.cache.TrimmedFile(original)
	if !ok {
		t.Fatal("expected trimmed cache")
	}

	proc, err := h.wf.Process(ctx, ProcessOptions{})
	if err != nil || proc.Get("processed") != 1 {
		t.Fatalf("Process = %s, %v (events %+v)", proc, err, h.eventsOf(EventError))
	}
	if len(h.transcriber.paths) != 1 || h.transcriber.paths[0] != trimmed {
		t.Fatalf("expected transcription of trimmed cache, got %v", h.transcriber.paths)
	}
	if h.analyzer.prompts[0] != "Return JSON." {
		t.Fatalf("unexpected system prompt %q", h.analyzer.prompts[0])
	}

	notes, err := filepath.Glob(filepath.Join(h.cfg.Paths.Output, "c", "*.md"))
	if err != nil || len(notes) != 1 {
		t.Fatalf("expected one note in output/c, got %v (%v)", notes, err)
	}
	body, _ := os.ReadFile(notes[0])
	if !strings.Contains(string(body), "# T") || !strings.Contains(string(body), "hello world") {
		t.Fatalf("unexpected note:\n%s", body)
	}
	if _, err := os.Stat(input); !os.IsNotExist(err) {
		t.Fatal("expected audio moved out of input")
	}
	archived, _ := filepath.Glob(filepath.Join(h.cfg.Paths.Archive, "*_memo.wav"))
	if len(archived) != 1 {
		t.Fatalf("expected archived audio, got %v", archived)
	}

	entry, ok, err := h.wf.ledger.Processed.Find(original)
	if err != nil || !ok {
		t.Fatalf("expected processed entry: %v", err)
	}
	want, _ := digest.File(trimmed)
	if entry.TranscribedFileHash != want || entry.TranscribedPath != trimmed {
		t.Fatalf("unexpected transcribed hash/path %+v", entry)
	}
	if entry.RecordedAt == nil || entry.RecordedAtSource != metadata.SourceMtime {
		t.Fatalf("expected recorded time from metadata, got %+v", entry)
	}

	prom := filepath.Join(t.TempDir(), "voxnote.prom")
	if err := h.recorder.WriteTextfile(prom); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(prom)
	if !strings.Contains(string(data), `voxnote_files_total{outcome="completed",run="process"} 1`) {
		t.Fatalf("expected process metric, got:\n%s", data)
	}
}

func TestProcessReusesSavedTranscriptionAfterAnalysisFailure(t *testing.T) {
	h := newHarness(t)
	input := filepath.Join(h.cfg.Paths.Input, "memo.wav")
	speechWAV(t, input, 1, 0, 1)
	h.analyzer.err = services.Wrap(services.ErrTransport, "analyze", "chat", "failed to call ollama", errors.New("connection refused"))

	sum, err := h.wf.Process(context.Background(), ProcessOptions{})
	if err != nil || sum.Get("failed") != 1 {
		t.Fatalf("Process = %s, %v", sum, err)
	}
	text, ok, err := h.wf.ledger.FailedText(input)
	if err != nil || !ok || text != "hello world" {
		t.Fatalf("expected saved transcription, got %q %v %v", text, ok, err)
	}
	errs := h.eventsOf(EventError)
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "Hint: Start Ollama") || errs[0].Data["saved_transcription"] != true {
		t.Fatalf("unexpected error event %+v", errs)
	}
	if _, err := os.Stat(input); err != nil {
		t.Fatal("audio should stay in input after a failed analysis")
	}

	h.analyzer.err = nil
	sum, err = h.wf.Process(context.Background(), ProcessOptions{})
	if err != nil || sum.Get("processed") != 1 {
		t.Fatalf("second Process = %s, %v", sum, err)
	}
	if len(h.transcriber.paths) != 1 {
		t.Fatalf("expected one transcription across both runs, got %d", len(h.transcriber.paths))
	}
	if _, ok, _ := h.wf.ledger.FailedText(input); ok {
		t.Fatal("expected failed entry purged")
	}
}

func TestProcessSkipsAlreadyProcessedContent(t *testing.T) {
	h := newHarness(t)
	first := filepath.Join(h.cfg.Paths.Input, "a.wav")
	speechWAV(t, first, 1, 0, 1)
	copyPath := filepath.Join(t.TempDir(), "copy.wav")
	if err := fileutil.CopyFilePreserve(first, copyPath); err != nil {
		t.Fatal(err)
	}
	if _, err := h.wf.Process(context.Background(), ProcessOptions{}); err != nil {
		t.Fatal(err)
	}

	again := filepath.Join(h.cfg.Paths.Input, "b.wav")
	if err := fileutil.CopyFilePreserve(copyPath, again); err != nil {
		t.Fatal(err)
	}
	sum, err := h.wf.Process(context.Background(), ProcessOptions{})
	if err != nil || sum.Get("skipped") != 1 || sum.Get("processed") != 0 {
		t.Fatalf("Process = %s, %v", sum, err)
	}

	sum, err = h.wf.Process(context.Background(), ProcessOptions{Force: true})
	if err != nil || sum.Get("processed") != 1 {
		t.Fatalf("forced Process = %s, %v", sum, err)
	}
}

func TestTrimSkipsSilentRecording(t *testing.T) {
	h := newHarness(t)
	input := filepath.Join(h.cfg.Paths.Input, "quiet.wav")
	speechWAV(t, input, 2, 0, 0)

	sum, err := h.wf.Trim(context.Background(), TrimOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Get("skipped_no_speech") != 1 || sum.Get("errors") != 0 {
		t.Fatalf("unexpected summary %s", sum)
	}
	if len(h.transcoder.decoded) != 1 {
		t.Fatal("expected a decode when no prepared cache exists")
	}
	d, _ := digest.File(input)
	if _, ok := h.wf.cache.TrimmedFile(d); ok {
		t.Fatal("no trimmed cache expected for silence")
	}
}

func TestTrimDryRunDoesNotWriteCache(t *testing.T) {
	h := newHarness(t)
	input := filepath.Join(h.cfg.Paths.Input, "memo.wav")
	speechWAV(t, input, 3, 1, 2)
	pad := 0
	threshold := 0.6

	sum, err := h.wf.Trim(context.Background(), TrimOptions{DryRun: true, PadMs: &pad, Threshold: &threshold})
	if err != nil || sum.Get("processed") != 1 {
		t.Fatalf("Trim = %s, %v", sum, err)
	}
	d, _ := digest.File(input)
	if _, ok := h.wf.cache.TrimmedFile(d); ok {
		t.Fatal("dry run must not populate the trimmed cache")
	}
	done := h.eventsOf(EventCompleted)
	if len(done) != 1 || done[0].Data["dry_run"] != true || !strings.HasPrefix(done[0].Message, "Dry run") {
		t.Fatalf("unexpected completion events %+v", done)
	}
}

func TestTrimOptionsOverrideConfig(t *testing.T) {
	cfg := config.Default().VAD
	threshold, silence, speech, pad := 0.2, 100, 50, 0
	p, gotPad := TrimOptions{Threshold: &threshold, MinSilenceMs: &silence, MinSpeechMs: &speech, PadMs: &pad}.params(cfg)
	if p.Threshold != 0.2 || p.NegThreshold != 0.2 || p.MinSilenceMs != 100 || p.MinSpeechMs != 50 || gotPad != 0 {
		t.Fatalf("unexpected params %+v pad=%d", p, gotPad)
	}
	p, gotPad = TrimOptions{}.params(cfg)
	if p.Threshold != cfg.Threshold || gotPad != cfg.SpeechPadMs {
		t.Fatalf("expected config defaults, got %+v pad=%d", p, gotPad)
	}
}

func TestCollectCopiesNewRecordings(t *testing.T) {
	h := newHarness(t)
	source := t.TempDir()
	speechWAV(t, filepath.Join(source, "a.wav"), 1, 0, 1)
	speechWAV(t, filepath.Join(source, ".d.wav"), 2, 0, 1)
	testsupport.WriteFile(t, filepath.Join(source, "notes.txt"), "x")
	speechWAV(t, filepath.Join(source, "nested", "b.wav"), 1, 0, 0.5)
	speechWAV(t, filepath.Join(source, ".archive", "c.wav"), 1, 0.25, 0.75)

	sum, err := h.wf.Collect(context.Background(), CollectOptions{Sources: []string{source}, RecursiveMode: planner.RecursiveOff})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Get("copied") != 2 || sum.Get("skipped") != 0 {
		t.Fatalf("unexpected summary %s", sum)
	}
	if ignored := h.eventsOf(EventSkipped); len(ignored) != 1 || !strings.Contains(ignored[0].Message, "notes.txt") {
		t.Fatalf("expected one ignored-format event, got %+v", ignored)
	}
	d, _ := digest.File(filepath.Join(source, "a.wav"))
	target := filepath.Join(h.cfg.Paths.Input, d+"_a.wav")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected collected copy: %v", err)
	}
	if _, ok, _ := h.wf.ledger.Metadata.Find(d); !ok {
		t.Fatal("expected metadata saved at collect time")
	}
	if plans := h.eventsOf(EventPlan); len(plans) != 1 {
		t.Fatalf("expected one plan event, got %d", len(plans))
	}

	sum, err = h.wf.Collect(context.Background(), CollectOptions{Sources: []string{source}, RecursiveMode: planner.RecursiveOn})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Get("copied") != 2 || sum.Get("skipped") != 2 {
		t.Fatalf("recursive run: unexpected summary %s", sum)
	}
	hidden, _ := digest.File(filepath.Join(source, ".archive", "c.wav"))
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.Input, hidden+"_c.wav")); err != nil {
		t.Fatalf("expected recording under a dot directory to be collected: %v", err)
	}
}

func TestCollectFailedCopyLeavesNoTarget(t *testing.T) {
	h := newHarness(t)
	source := t.TempDir()
	src := filepath.Join(source, "a.wav")
	speechWAV(t, src, 1, 0, 1)
	d, _ := digest.File(src)
	target := filepath.Join(h.cfg.Paths.Input, d+"_a.wav")

	failures := 1
	h.wf.copyFile = func(src, dst string) error {
		if failures > 0 {
			failures--
			if err := os.WriteFile(dst, []byte("RIFF"), 0o644); err != nil {
				t.Fatal(err)
			}
			return errors.New("disk full")
		}
		return fileutil.CopyFilePreserve(src, dst)
	}

	opts := CollectOptions{Sources: []string{source}, RecursiveMode: planner.RecursiveOff}
	sum, err := h.wf.Collect(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Get("errors") != 1 || sum.Get("copied") != 0 {
		t.Fatalf("unexpected summary %s", sum)
	}
	if _, err := os.Stat(target); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected partial target removed, stat err = %v", err)
	}
	if _, ok, _ := h.wf.ledger.Collected.Find(d); ok {
		t.Fatal("failed copy must not be recorded as collected")
	}

	sum, err = h.wf.Collect(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Get("copied") != 1 {
		t.Fatalf("retry: unexpected summary %s", sum)
	}
	info, err := os.Stat(target)
	srcInfo, _ := os.Stat(src)
	if err != nil || info.Size() != srcInfo.Size() {
		t.Fatalf("expected full copy on retry, got %v, %v", info, err)
	}
}

func TestCollectWarnsOnMissingSource(t *testing.T) {
	h := newHarness(t)
	sum, err := h.wf.Collect(context.Background(), CollectOptions{Sources: []string{filepath.Join(t.TempDir(), "gone")}})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.eventsOf(EventWarning)) != 1 || sum.Get("copied") != 0 {
		t.Fatalf("expected a warning, got %+v", h.events)
	}
}

func TestFileOutsideInputIsRejected(t *testing.T) {
	h := newHarness(t)
	outside := filepath.Join(t.TempDir(), "elsewhere.wav")
	speechWAV(t, outside, 1, 0, 1)
	_, err := h.wf.Prepare(context.Background(), PrepareOptions{File: outside})
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "inside input/") {
		t.Fatalf("expected input location error, got %v", err)
	}
}

func TestFileRelativeToInput(t *testing.T) {
	h := newHarness(t)
	speechWAV(t, filepath.Join(h.cfg.Paths.Input, "memo.wav"), 1, 0, 1)
	sum, err := h.wf.Prepare(context.Background(), PrepareOptions{File: "memo.wav"})
	if err != nil || sum.Get("prepared") != 1 {
		t.Fatalf("Prepare = %s, %v", sum, err)
	}
	sum, err = h.wf.Prepare(context.Background(), PrepareOptions{File: "memo.wav"})
	if err != nil || sum.Get("skipped") != 1 {
		t.Fatalf("second Prepare = %s, %v", sum, err)
	}
}

func TestPrepareSavesMissingMetadata(t *testing.T) {
	h := newHarness(t)
	input := filepath.Join(h.cfg.Paths.Input, "memo.wav")
	speechWAV(t, input, 1, 0, 1)
	d, _ := digest.File(input)

	sum, err := h.wf.Prepare(context.Background(), PrepareOptions{})
	if err != nil || sum.Get("prepared") != 1 {
		t.Fatalf("Prepare = %s, %v", sum, err)
	}
	entry, ok, err := h.wf.ledger.Metadata.Find(d)
	if err != nil || !ok {
		t.Fatalf("expected metadata entry after prepare, ok=%v err=%v", ok, err)
	}
	if entry.OriginalSourceName != "memo.wav" || h.meta.calls != 1 {
		t.Fatalf("unexpected metadata entry %+v after %d collections", entry, h.meta.calls)
	}

	if _, err := h.wf.Prepare(context.Background(), PrepareOptions{Force: true}); err != nil {
		t.Fatal(err)
	}
	if h.meta.calls != 1 {
		t.Fatalf("saved metadata should be reused, got %d collections", h.meta.calls)
	}
}

func TestCancelledRunStopsBeforeNextFile(t *testing.T) {
	h := newHarness(t)
	speechWAV(t, filepath.Join(h.cfg.Paths.Input, "a.wav"), 1, 0, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := h.wf.Prepare(ctx, PrepareOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if sum.Get("prepared") != 0 || len(h.transcoder.prepared) != 0 {
		t.Fatalf("expected no work after cancellation, got %s", sum)
	}
	if len(h.eventsOf(EventSummary)) != 1 {
		t.Fatal("expected a summary event")
	}
}

func TestStatusCountsPendingAndNotes(t *testing.T) {
	h := newHarness(t)
	speechWAV(t, filepath.Join(h.cfg.Paths.Input, "a.wav"), 1, 0, 1)
	testsupport.WriteFile(t, filepath.Join(h.cfg.Paths.Input, "notes.txt"), "x")
	testsupport.WriteFile(t, filepath.Join(h.cfg.Paths.Input, ".hidden.wav"), "x")
	testsupport.WriteFile(t, filepath.Join(h.cfg.Paths.Output, "ideas", "n1.md"), "# n1")
	testsupport.WriteFile(t, filepath.Join(h.cfg.Paths.Output, "work", "n2.md"), "# n2")

	st, err := h.wf.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(st.Pending) != 1 || filepath.Base(st.Pending[0]) != "a.wav" {
		t.Fatalf("unexpected pending %v", st.Pending)
	}
	if st.Notes != 2 {
		t.Fatalf("expected 2 notes, got %d", st.Notes)
	}
	if st.Ledger.Processed != 0 {
		t.Fatalf("unexpected ledger counts %+v", st.Ledger)
	}
}
