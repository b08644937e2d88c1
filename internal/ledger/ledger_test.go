package ledger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxnote/internal/ledger"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestUpsertProcessedKeepsSingleEntry(t *testing.T) {
	dir := t.TempDir()
	l := ledger.Open(dir, nil)

	first := ledger.ProcessedEntry{ProcessedAt: ledger.Now(), OriginalHash: "aaa", NotePath: "/notes/one.md"}
	second := ledger.ProcessedEntry{ProcessedAt: ledger.Now(), OriginalHash: "aaa", NotePath: "/notes/two.md"}
	other := ledger.ProcessedEntry{ProcessedAt: ledger.Now(), OriginalHash: "bbb", NotePath: "/notes/b.md"}

	for _, e := range []ledger.ProcessedEntry{first, other, second} {
		if err := l.UpsertProcessed(e); err != nil {
			t.Fatalf("UpsertProcessed: %v", err)
		}
	}
	all, err := l.Processed.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	got, ok, err := l.Processed.Find("aaa")
	if err != nil || !ok {
		t.Fatalf("Find: ok=%v err=%v", ok, err)
	}
	if got.NotePath != "/notes/two.md" {
		t.Fatalf("expected newest entry, got %q", got.NotePath)
	}
}

func TestPurgeKeepsMalformedLinesAndDropsBlank(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ledger.ProcessedFile)
	body := strings.Join([]string{
		`{"original_hash":"aaa","note_path":"a.md"}`,
		``,
		`not json at all`,
		`[1,2,3]`,
		`{"original_hash":"bbb","note_path":"b.md"}`,
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	l := ledger.Open(dir, nil)

	removed, err := l.Processed.Purge("aaa")
	if err != nil || !removed {
		t.Fatalf("Purge: removed=%v err=%v", removed, err)
	}
	want := "not json at all\n[1,2,3]\n" + `{"original_hash":"bbb","note_path":"b.md"}` + "\n"
	if got := readFile(t, path); got != want {
		t.Fatalf("unexpected file after purge:\n%s", got)
	}

	keys, err := l.Processed.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected one key, got %v", keys)
	}
}

func TestPurgeWithoutMatchLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ledger.CollectedFile)
	body := "{\"original_hash\":\"aaa\"}\n\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	l := ledger.Open(dir, nil)
	removed, err := l.Collected.Purge("zzz")
	if err != nil || removed {
		t.Fatalf("Purge: removed=%v err=%v", removed, err)
	}
	if got := readFile(t, path); got != body {
		t.Fatalf("file rewritten: %q", got)
	}
}

func TestPurgeRemovesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	l := ledger.Open(dir, nil)
	audio := filepath.Join(dir, "note.m4a")
	if err := l.UpsertFailed(ledger.FailedEntry{CreatedAt: ledger.Now(), AudioPath: audio, Text: "hello", Error: "boom"}); err != nil {
		t.Fatalf("UpsertFailed: %v", err)
	}
	text, ok, err := l.FailedText(audio)
	if err != nil || !ok || text != "hello" {
		t.Fatalf("FailedText: %q ok=%v err=%v", text, ok, err)
	}
	removed, err := l.PurgeFailed(audio)
	if err != nil || !removed {
		t.Fatalf("PurgeFailed: removed=%v err=%v", removed, err)
	}
	if _, err := os.Stat(l.Failed.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected failed ledger removed, stat err=%v", err)
	}
}

func TestFailedTextMatchesThroughSymlink(t *testing.T) {
	dir := t.TempDir()
	realDir := filepath.Join(dir, "real")
	if err := os.MkdirAll(realDir, 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	audio := filepath.Join(realDir, "a.wav")
	if err := os.WriteFile(audio, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := ledger.Open(filepath.Join(dir, "state"), nil)
	if err := l.UpsertFailed(ledger.FailedEntry{AudioPath: filepath.Join(link, "a.wav"), Text: "saved"}); err != nil {
		t.Fatalf("UpsertFailed: %v", err)
	}
	text, ok, err := l.FailedText(audio)
	if err != nil || !ok || text != "saved" {
		t.Fatalf("expected lookup through symlink, got %q ok=%v err=%v", text, ok, err)
	}
}

func TestProcessedMatchesLegacyFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ledger.ProcessedFile)
	line := `{"processed_at":"2024-03-01T09:15:00.123456","file_hash":"legacy","note_path":"old.md","recorded_at":null}` + "\n"
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	l := ledger.Open(dir, nil)

	entry, ok, err := l.Processed.Find("legacy")
	if err != nil || !ok {
		t.Fatalf("Find legacy: ok=%v err=%v", ok, err)
	}
	want := time.Date(2024, 3, 1, 9, 15, 0, 123456000, time.Local)
	if !entry.ProcessedAt.Equal(want) {
		t.Fatalf("unexpected processed_at %v", entry.ProcessedAt)
	}
	if entry.RecordedAt != nil {
		t.Fatalf("expected nil recorded_at, got %v", entry.RecordedAt)
	}

	if err := l.UpsertProcessed(ledger.ProcessedEntry{ProcessedAt: ledger.Now(), OriginalHash: "legacy", NotePath: "new.md"}); err != nil {
		t.Fatalf("UpsertProcessed: %v", err)
	}
	all, err := l.Processed.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 || all[0].NotePath != "new.md" {
		t.Fatalf("expected legacy entry replaced, got %+v", all)
	}
}

func TestKnownDigestsAndCounts(t *testing.T) {
	dir := t.TempDir()
	l := ledger.Open(dir, nil)
	if err := l.Collected.Append(ledger.CollectedEntry{CollectedAt: ledger.Now(), OriginalHash: "c1"}); err != nil {
		t.Fatal(err)
	}
	if err := l.UpsertProcessed(ledger.ProcessedEntry{ProcessedAt: ledger.Now(), OriginalHash: "p1"}); err != nil {
		t.Fatal(err)
	}
	known, err := l.KnownDigests()
	if err != nil {
		t.Fatalf("KnownDigests: %v", err)
	}
	for _, k := range []string{"c1", "p1"} {
		if _, ok := known[k]; !ok {
			t.Fatalf("expected %s known", k)
		}
	}
	counts, err := l.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Collected != 1 || counts.Processed != 1 || counts.Failed != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestTimeMarshalsZeroAsNull(t *testing.T) {
	data, err := ledger.Time{}.MarshalJSON()
	if err != nil || string(data) != "null" {
		t.Fatalf("unexpected zero marshal %q err=%v", data, err)
	}
	ts := ledger.NewTime(time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC))
	data, err = ts.MarshalJSON()
	if err != nil || string(data) != `"2024-05-02T10:00:00Z"` {
		t.Fatalf("unexpected marshal %q err=%v", data, err)
	}
	if _, err := ledger.ParseTime("yesterday"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAppendAfterTornLineStartsNewLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ledger.ProcessedFile)
	torn := `{"original_hash":"aaa","note_pa`
	if err := os.WriteFile(path, []byte(torn), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	l := ledger.Open(dir, nil)

	if err := l.UpsertProcessed(ledger.ProcessedEntry{ProcessedAt: ledger.Now(), OriginalHash: "bbb", NotePath: "/notes/b.md"}); err != nil {
		t.Fatalf("UpsertProcessed: %v", err)
	}
	got, ok, err := l.Processed.Find("bbb")
	if err != nil || !ok {
		t.Fatalf("Find after torn line: ok=%v err=%v", ok, err)
	}
	if got.NotePath != "/notes/b.md" {
		t.Fatalf("unexpected entry %+v", got)
	}
	body := readFile(t, path)
	if !strings.HasPrefix(body, torn+"\n") || !strings.HasSuffix(body, "\n") {
		t.Fatalf("expected torn line kept on its own line:\n%s", body)
	}
	if strings.Count(body, "\n") != 2 {
		t.Fatalf("expected two lines, got:\n%s", body)
	}
}
