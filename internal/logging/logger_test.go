package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_WritesJSONToSessionDir(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.WithSession("s1").WithRun("r1").Info("run started", "turn", 0)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "debug.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	var entry map[string]any
	line := strings.TrimSpace(string(data))
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, line)
	}
	if entry["msg"] != "run started" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["session_id"] != "s1" || entry["run_id"] != "r1" {
		t.Errorf("persistent attrs missing: %v", entry)
	}
	if entry["turn"] != float64(0) {
		t.Errorf("per-call attr missing: %v", entry)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelWarn)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "debug.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "dropped") {
		t.Errorf("below-level entries should be filtered:\n%s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn entry missing:\n%s", out)
	}
}

func TestLogger_ChildDoesNotMutateParent(t *testing.T) {
	logger := NopLogger()
	child := logger.WithParticipant("p1")

	if len(logger.attrs) != 0 {
		t.Error("parent attrs should be untouched")
	}
	if len(child.attrs) != 1 {
		t.Error("child should carry the new attr")
	}
}

func TestNopLogger_DoesNotPanic(t *testing.T) {
	logger := NopLogger()
	logger.Debug("x")
	logger.Info("x", "k", "v")
	logger.Warn("x")
	logger.Error("x")
	if err := logger.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
