package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestWithWritersFansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := WithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("dataset loaded", "diseases", 21)

	if strings.Contains(stderr.String(), "hidden") {
		t.Error("debug record should be filtered")
	}
	if !strings.Contains(stderr.String(), "diseases=21") {
		t.Errorf("text output = %q", stderr.String())
	}

	var rec map[string]any
	if err := json.Unmarshal(file.Bytes(), &rec); err != nil {
		t.Fatalf("file output is not JSON: %v (%q)", err, file.String())
	}
	if rec["msg"] != "dataset loaded" {
		t.Errorf("msg = %v", rec["msg"])
	}
}

func TestSetupWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "plantdoc.log")
	var stderr bytes.Buffer

	logger, cleanup, err := Setup(&stderr, "info", path)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	logger.Info("hello")
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("log file = %q", data)
	}
}

func TestSetupRejectsBadLevel(t *testing.T) {
	if _, _, err := Setup(&bytes.Buffer{}, "nope", ""); err == nil {
		t.Error("expected error")
	}
}
