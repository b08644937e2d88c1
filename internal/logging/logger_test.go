package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxnote/internal/config"
	"voxnote/internal/logging"
	"voxnote/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "voxnote.log")
	cfg.Logging.Level = "info"

	logger, err := logging.NewFromConfig(&cfg, "")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello file")

	content, err := os.ReadFile(cfg.Logging.File)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello file") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestLevelOverrideWins(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "voxnote.log")
	cfg.Logging.Level = "error"

	logger, err := logging.NewFromConfig(&cfg, "debug")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("debug visible")
	content, err := os.ReadFile(cfg.Logging.File)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "debug visible") {
		t.Fatalf("expected debug line with override, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndStage(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	digest := strings.Repeat("ab", 32)
	ctx := services.WithStage(services.WithFileDigest(context.Background(), digest), "prepare")
	component := logging.NewComponentLogger(logger, "workflow")
	logging.WithContext(ctx, component).Info("prepared audio", logging.String("target", "a b.wav"))

	line := buf.String()
	if !strings.Contains(line, "INFO workflow/prepare: prepared audio") {
		t.Fatalf("unexpected console line %q", line)
	}
	if !strings.Contains(line, "file_digest="+digest[:12]+" ") && !strings.HasSuffix(strings.TrimSpace(line), "file_digest="+digest[:12]) {
		t.Fatalf("expected shortened digest in %q", line)
	}
	if strings.Contains(line, digest) {
		t.Fatalf("expected full digest to be abbreviated, got %q", line)
	}
	if !strings.Contains(line, `target="a b.wav"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRun(context.Background(), "process")
	ctx = services.WithRequestID(ctx, "run-1")
	logging.WithContext(ctx, logger).Warn("slow", logging.Int("attempt", 2))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record["level"] != "warn" || record["msg"] != "slow" {
		t.Fatalf("unexpected record %v", record)
	}
	if record[logging.FieldRun] != "process" || record[logging.FieldCorrelationID] != "run-1" {
		t.Fatalf("missing context fields in %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %v", record)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "rollback incomplete", "rollback_failed", logging.String(logging.FieldImpact, "audio left in archive"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record[logging.FieldEventType] != "rollback_failed" {
		t.Fatalf("expected event type, got %v", record)
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default hint, got %v", record)
	}
	if record[logging.FieldImpact] != "audio left in archive" {
		t.Fatalf("expected caller impact preserved, got %v", record)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLogger(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("discarded")
	if logger.Enabled(context.Background(), 0) {
		t.Fatal("expected nop logger to be disabled")
	}
}
