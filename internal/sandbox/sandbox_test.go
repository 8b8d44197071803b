package sandbox

import (
	"bytes"
	"context"
	"testing"
	"time"

	"pygr/internal/errs"
)

func TestRunSucceeds(t *testing.T) {
	r := New("")
	res, err := r.Run(context.Background(), Spec{Command: []string{"sh", "-c", "echo hello"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stdout != "hello\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hello\n")
	}
}

func TestRunNonzeroExitIsBuildFailed(t *testing.T) {
	r := New("")
	_, err := r.Run(context.Background(), Spec{Command: []string{"sh", "-c", "echo boom >&2; exit 3"}})
	if !errs.Is(err, errs.BuildFailed) {
		t.Fatalf("Run() = %v, want BuildFailed", err)
	}
}

func TestRunTimeoutIsBuildTimeout(t *testing.T) {
	r := New("")
	_, err := r.Run(context.Background(), Spec{
		Command: []string{"sh", "-c", "sleep 5"},
		Timeout: 20 * time.Millisecond,
	})
	if !errs.Is(err, errs.BuildTimeout) {
		t.Fatalf("Run() = %v, want BuildTimeout", err)
	}
}

func TestLimitedWriterCapsOutput(t *testing.T) {
	var buf bytes.Buffer
	w := &limitedWriter{buf: &buf, max: 4}
	_, _ = w.Write([]byte("hello world"))
	if got := buf.String(); got != "hell" {
		t.Errorf("buf = %q, want %q", got, "hell")
	}
}
