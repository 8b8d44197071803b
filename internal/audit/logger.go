// Package audit appends structured JSON-lines events recording each
// resolve/fetch/build/install phase pygr's builder and app layer
// drive, so a failed run leaves a durable trail behind it instead of
// whatever scrolled past on stderr.
package audit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is one line of the audit log: one phase of one operation,
// with enough structured context to reconstruct what pygr did without
// parsing free-form log text.
type Event struct {
	Timestamp string            `json:"timestamp"`
	Operation string            `json:"operation"`
	Phase     string            `json:"phase"`
	Status    string            `json:"status"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Logger appends Events to a single JSON-lines file. A Logger with an
// empty path is a valid no-op, so callers that wire one into a
// builder.Service or app.Service don't need a nil check at every call
// site.
type Logger struct {
	path string
	mu   sync.Mutex
}

// New returns a Logger appending to path. Nothing is created on disk
// until the first Log call.
func New(path string) *Logger {
	return &Logger{path: path}
}

// Log appends ev to the log file, stamping it with the current time.
// A nil Logger, or one constructed with an empty path, silently does
// nothing.
func (l *Logger) Log(ev Event) error {
	if l == nil || l.path == "" {
		return nil
	}
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	var line bytes.Buffer
	if err := json.NewEncoder(&line).Encode(ev); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(line.Bytes())
}

func (l *Logger) append(line []byte) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(line)
	return err
}
