package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func reset() {
	Close()
	Logger = nil
}

func TestNoopBeforeInit(t *testing.T) {
	reset()
	Info("ignored")
	Warn("ignored", "k", 1)
	if WithPrefix("search") == nil {
		t.Fatal("WithPrefix must never return nil")
	}
	WithPrefix("search").Info("also ignored")
}

func TestInitWriterLevel(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	if err := InitWriter(&buf, "warn"); err != nil {
		t.Fatal(err)
	}
	Info("hidden")
	Warn("shown", "query", "matrix")
	WithPrefix("feed").Error("page failed")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "query=matrix") {
		t.Errorf("missing warn line: %s", out)
	}
	if !strings.Contains(out, "feed") || !strings.Contains(out, "page failed") {
		t.Errorf("missing prefixed line: %s", out)
	}
}

func TestInitWriterRejectsBadLevel(t *testing.T) {
	defer reset()
	if err := InitWriter(&bytes.Buffer{}, "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInitWritesRotatingFile(t *testing.T) {
	defer reset()
	dir := t.TempDir()
	if err := Init(Options{Dir: dir, Level: "debug", MaxSizeMB: 1, MaxBackups: 1, Version: "test"}); err != nil {
		t.Fatal(err)
	}
	Debug("details opened", "tmdb_id", 603)
	Close()

	data, err := os.ReadFile(Path(dir))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"cinelog started", "details opened", "tmdb_id=603", "shutting down"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q:\n%s", want, data)
		}
	}
}
