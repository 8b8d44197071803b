// Package sandbox runs build and install commands inside a
// constrained filesystem view. Sandboxing is expressed as a policy
// record, not a process mode: the runner either shells out to a
// sandbox helper binary that realizes the policy, or, when sandboxing
// is disabled, runs the command directly in the host process.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"pygr/internal/errs"
)

// Policy describes the capability set a command should run under.
// NetworkOn allows outbound network access; ReadOnly names paths the
// command may read but not write; Writable names paths it may write.
type Policy struct {
	NetworkOn bool
	ReadOnly  []string
	Writable  []string
}

// Spec is one command to execute under a Policy.
type Spec struct {
	Command []string
	Dir     string
	Env     []string
	Timeout time.Duration
	Policy  Policy
}

// Result captures a finished command's output.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

const maxCapturedOutput = 1 << 20 // 1MiB per stream, enough for build logs without unbounded memory use.

// Runner executes Specs. helperPath, when non-empty, names a sandbox
// helper binary on PATH that understands the "pygr-sandbox exec"
// invocation; an empty helperPath runs commands directly.
type Runner struct {
	helperPath string
}

// New returns a Runner. If helper is "", commands run directly in the
// host process.
func New(helper string) *Runner {
	return &Runner{helperPath: helper}
}

// Detect looks for a sandbox helper binary on PATH and returns a
// Runner wired to it, or a host-process Runner if none is found.
func Detect() *Runner {
	path, err := exec.LookPath("pygr-sandbox")
	if err != nil {
		return New("")
	}
	return New(path)
}

// Run executes spec.Command, returning BuildTimeout if it exceeds
// spec.Timeout and BuildFailed (carrying captured output) on nonzero
// exit.
func (r *Runner) Run(ctx context.Context, spec Spec) (Result, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	args := spec.Command
	name := ""
	if len(args) > 0 {
		name = args[0]
		args = args[1:]
	}
	if r.helperPath != "" {
		name, args = r.helperPath, wrapWithHelper(spec)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{buf: &stdout, max: maxCapturedOutput}
	cmd.Stderr = &limitedWriter{buf: &stderr, max: maxCapturedOutput}

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if exitErr := (*exec.ExitError)(nil); errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}

	if ctx.Err() == context.DeadlineExceeded {
		return result, errs.New(errs.BuildTimeout, "SANDBOX_TIMEOUT", "command %v exceeded its time limit", spec.Command)
	}
	if err != nil {
		return result, errs.Wrap(errs.BuildFailed, "SANDBOX_EXIT", err, "command %v failed", spec.Command)
	}
	return result, nil
}

// wrapWithHelper translates a Spec into the helper binary's
// invocation: "pygr-sandbox exec [--net] --rw PATH... --ro PATH... -- CMD...".
func wrapWithHelper(spec Spec) []string {
	args := []string{"exec"}
	if spec.Policy.NetworkOn {
		args = append(args, "--net")
	}
	for _, p := range spec.Policy.Writable {
		args = append(args, "--rw", p)
	}
	for _, p := range spec.Policy.ReadOnly {
		args = append(args, "--ro", p)
	}
	args = append(args, "--")
	args = append(args, spec.Command...)
	return args
}

// limitedWriter caps captured output so a runaway build cannot exhaust
// memory; bytes past max are silently dropped.
type limitedWriter struct {
	buf *bytes.Buffer
	max int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	remaining := w.max - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	w.buf.Write(p)
	return len(p), nil
}
