package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogAppendsOneJSONLinePerEvent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "pygr", "audit.log")
	logger := New(logPath)

	resolve := Event{
		Operation: "install",
		Phase:     "resolve",
		Status:    "ok",
		Code:      "RESOLVE_OK",
		Message:   "pinned 3 packages",
		Fields:    map[string]string{"package": "ripgrep"},
	}
	build := Event{
		Operation: "install",
		Phase:     "build",
		Status:    "ok",
	}

	if err := logger.Log(resolve); err != nil {
		t.Fatalf("log resolve event: %v", err)
	}
	if err := logger.Log(build); err != nil {
		t.Fatalf("log build event: %v", err)
	}

	blob, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(blob)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	var gotResolve Event
	if err := json.Unmarshal([]byte(lines[0]), &gotResolve); err != nil {
		t.Fatalf("unmarshal resolve event: %v", err)
	}
	if gotResolve.Timestamp == "" {
		t.Fatalf("expected timestamp to be set")
	}
	if _, err := time.Parse(time.RFC3339Nano, gotResolve.Timestamp); err != nil {
		t.Fatalf("timestamp should be RFC3339Nano: %v", err)
	}
	if gotResolve.Operation != resolve.Operation || gotResolve.Phase != resolve.Phase || gotResolve.Status != resolve.Status {
		t.Fatalf("unexpected resolve event body: %+v", gotResolve)
	}
	if gotResolve.Code != resolve.Code || gotResolve.Message != resolve.Message {
		t.Fatalf("unexpected resolve event metadata: %+v", gotResolve)
	}
	if gotResolve.Fields["package"] != "ripgrep" {
		t.Fatalf("unexpected resolve event fields: %+v", gotResolve.Fields)
	}

	var gotBuild Event
	if err := json.Unmarshal([]byte(lines[1]), &gotBuild); err != nil {
		t.Fatalf("unmarshal build event: %v", err)
	}
	if gotBuild.Operation != build.Operation || gotBuild.Phase != build.Phase || gotBuild.Status != build.Status {
		t.Fatalf("unexpected build event body: %+v", gotBuild)
	}
}

func TestLogOnNilOrUnconfiguredLoggerIsNoop(t *testing.T) {
	var nilLogger *Logger
	if err := nilLogger.Log(Event{Operation: "install"}); err != nil {
		t.Fatalf("nil logger should be a noop: %v", err)
	}
	if err := New("").Log(Event{Operation: "install"}); err != nil {
		t.Fatalf("logger with empty path should be a noop: %v", err)
	}
}

func TestLogFailsWhenLogDirectoryCannotBeCreated(t *testing.T) {
	tmp := t.TempDir()
	blocked := filepath.Join(tmp, "blocked")
	if err := os.WriteFile(blocked, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("create blocking file: %v", err)
	}

	logger := New(filepath.Join(blocked, "audit.log"))
	if err := logger.Log(Event{Operation: "install"}); err == nil {
		t.Fatalf("expected mkdir failure under a file masquerading as a directory")
	}
}

func TestLogFailsWhenLogPathIsADirectory(t *testing.T) {
	tmp := t.TempDir()
	logDir := filepath.Join(tmp, "audit.log")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("create directory at log path: %v", err)
	}

	logger := New(logDir)
	if err := logger.Log(Event{Operation: "install"}); err == nil {
		t.Fatalf("expected open failure when the log path is itself a directory")
	}
}
