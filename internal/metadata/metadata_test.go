package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func writeAudio(t *testing.T, dir string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, "memo.m4a")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCollectPrefersFFprobeCreationTime(t *testing.T) {
	dir := t.TempDir()
	audio := writeAudio(t, dir, time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local))
	ffprobe := writeScript(t, dir, "ffprobe", `cat <<'JSON'
{"streams":[{"codec_type":"audio","codec_name":"aac","sample_rate":"48000","channels":1}],
 "format":{"duration":"3725.5","tags":{"creation_time":"2024-03-01T09:15:00.000000Z","title":"Idea"}}}
JSON
`)
	mdls := writeScript(t, dir, "mdls", `echo 'kMDItemContentCreationDate = 2023-01-01 00:00:00 +0000'
`)
	c := NewCollector(ffprobe, nil)
	c.WithMdlsBinary(mdls)

	meta, err := c.Collect(context.Background(), audio)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if meta.RecordedAtSource != SourceFFprobe {
		t.Fatalf("unexpected source %q", meta.RecordedAtSource)
	}
	if !meta.RecordedAt.Equal(time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)) {
		t.Fatalf("unexpected recorded_at %v", meta.RecordedAt)
	}
	if meta.Mdls["kMDItemContentCreationDate"] == nil {
		t.Fatalf("expected mdls captured, got %v", meta.Mdls)
	}

	summary := Summarize(meta)
	if summary.DurationHMS != "01:02:05" || summary.Codec != "aac" || summary.Title != "Idea" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.SampleRate == nil || *summary.SampleRate != 48000 {
		t.Fatalf("unexpected sample rate %v", summary.SampleRate)
	}
}

func TestCollectFallsBackToMdls(t *testing.T) {
	dir := t.TempDir()
	audio := writeAudio(t, dir, time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local))
	ffprobe := writeScript(t, dir, "ffprobe", `echo '{"streams":[],"format":{"tags":{}}}'
`)
	mdls := writeScript(t, dir, "mdls", `cat <<'OUT'
kMDItemAuthors                 = (
    "Me",
    "You"
)
kMDItemContentCreationDate     = (null)
kMDItemRecordingDate           = 2023-06-15 08:30:00 +0000
kMDItemDurationSeconds         = 12.5
OUT
`)
	c := NewCollector(ffprobe, nil)
	c.WithMdlsBinary(mdls)

	meta, err := c.Collect(context.Background(), audio)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if meta.RecordedAtSource != SourceMdls {
		t.Fatalf("unexpected source %q", meta.RecordedAtSource)
	}
	if !meta.RecordedAt.Equal(time.Date(2023, 6, 15, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected recorded_at %v", meta.RecordedAt)
	}
	authors, ok := meta.Mdls["kMDItemAuthors"].([]any)
	if !ok || len(authors) != 2 || authors[0] != "Me" {
		t.Fatalf("unexpected array parse %v", meta.Mdls["kMDItemAuthors"])
	}
	if _, present := meta.Mdls["kMDItemContentCreationDate"]; present {
		t.Fatal("expected (null) values omitted")
	}
	if d := Summarize(meta).DurationSeconds; d == nil || *d != 12.5 {
		t.Fatalf("expected mdls duration, got %v", d)
	}
}

func TestCollectFallsBackToFileTimes(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Date(2021, 5, 4, 3, 2, 1, 0, time.Local)
	audio := writeAudio(t, dir, mtime)
	c := NewCollector(filepath.Join(dir, "no-ffprobe"), nil)
	c.WithMdlsBinary(filepath.Join(dir, "no-mdls"))

	meta, err := c.Collect(context.Background(), audio)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	switch meta.RecordedAtSource {
	case SourceMtime:
		if !meta.RecordedAt.Equal(mtime) {
			t.Fatalf("unexpected mtime recorded_at %v", meta.RecordedAt)
		}
	case SourceBirthtime:
	default:
		t.Fatalf("unexpected source %q", meta.RecordedAtSource)
	}
	if got, ok := StatTime(meta.Stat, "st_mtime"); !ok || !got.Equal(mtime) {
		t.Fatalf("unexpected st_mtime %v", got)
	}
	if meta.FFprobe != nil || meta.Mdls != nil {
		t.Fatal("expected missing tools to leave sections empty")
	}
}

func TestEntryRoundTrip(t *testing.T) {
	recorded := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	meta := Metadata{RecordedAt: recorded, RecordedAtSource: SourceMdls, Stat: map[string]any{"st_mtime": 1.0}}
	entry := meta.Entry("abc", "/src/memo.m4a", "memo.m4a")
	if entry.RecordedAt == nil || !entry.RecordedAt.Equal(recorded) || entry.OriginalHash != "abc" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	back := FromEntry(entry)
	if !back.RecordedAt.Equal(recorded) || back.RecordedAtSource != SourceMdls {
		t.Fatalf("unexpected metadata %+v", back)
	}
	if !FromEntry(Metadata{}.Entry("x", "", "")).RecordedAt.IsZero() {
		t.Fatal("expected zero recorded_at to survive")
	}
}
