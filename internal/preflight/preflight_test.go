package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxnote/internal/config"
	"voxnote/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "voxnote init") {
		t.Fatalf("expected init hint, got %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFile(t *testing.T) {
	model := filepath.Join(t.TempDir(), "std.rnnn")
	if err := os.WriteFile(model, []byte("rnnoise"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckFile("Denoise model", model); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckFile("Denoise model", filepath.Dir(model)); r.Passed {
		t.Fatal("expected failure for directory")
	}
	if r := CheckFile("Denoise model", ""); r.Passed || r.Detail != "not configured" {
		t.Fatalf("unexpected result for empty path: %+v", r)
	}
}

func tagsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckOllama_ModelPresent(t *testing.T) {
	srv := tagsServer(t, `{"models":[{"name":"llama3:latest"}]}`)
	result := CheckOllama(context.Background(), config.LLM{BaseURL: srv.URL, Model: "llama3"})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckOllama_ModelMissing(t *testing.T) {
	srv := tagsServer(t, `{"models":[{"name":"mistral:latest"}]}`)
	result := CheckOllama(context.Background(), config.LLM{BaseURL: srv.URL, Model: "llama3"})
	if result.Passed || !strings.Contains(result.Detail, "ollama pull llama3") {
		t.Fatalf("expected pull hint, got: %+v", result)
	}
}

func TestCheckOllama_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	result := CheckOllama(context.Background(), config.LLM{BaseURL: url, Model: "llama3"})
	if result.Passed || !strings.Contains(result.Detail, "ollama serve") {
		t.Fatalf("expected serve hint, got: %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportsEveryCheck(t *testing.T) {
	srv := tagsServer(t, `{"models":[{"name":"llama3"}]}`)
	cfg := testsupport.NewConfig(t,
		testsupport.WithLLMBaseURL(srv.URL),
		testsupport.WithStubbedBinaries(),
	)

	results := RunAll(context.Background(), cfg)
	byName := make(map[string]Result, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}
	for _, name := range []string{"ffmpeg", "ffprobe", "mlx_whisper", "Ollama", "Denoise model", "Input directory", "State directory"} {
		if _, ok := byName[name]; !ok {
			t.Fatalf("missing check %q in %+v", name, results)
		}
	}
	if !byName["ffmpeg"].Passed || !byName["Ollama"].Passed || !byName["Archive directory"].Passed {
		t.Fatalf("expected stubbed tools, reachable service and archive dir, got %+v", results)
	}
	if byName["Denoise model"].Passed {
		t.Fatal("expected missing denoise model to fail")
	}
	if !Failed(results) {
		t.Fatal("expected Failed to report the missing model")
	}

	testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "assets", "denoise", "std.rnnn"), "rnnoise")
	if Failed(RunAll(context.Background(), cfg)) {
		t.Fatalf("expected every required check to pass, got %+v", RunAll(context.Background(), cfg))
	}
}
