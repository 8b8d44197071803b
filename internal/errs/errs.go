// Package errs defines the structured error kinds the pygr core
// distinguishes, per the propagation policy in the specification's
// error handling design: every component returns one of these instead
// of a bare stack trace, and the CLI layer maps Kind to an exit code.
package errs

import "fmt"

// Kind names one of the error categories the core can surface.
type Kind string

const (
	Layout               Kind = "Layout"
	RepoExists           Kind = "RepoExists"
	RepoMissing          Kind = "RepoMissing"
	RecipeMalformed      Kind = "RecipeMalformed"
	FetchFailed          Kind = "FetchFailed"
	FetchTimeout         Kind = "FetchTimeout"
	NoBuildSystem        Kind = "NoBuildSystem"
	BuildFailed          Kind = "BuildFailed"
	BuildTimeout         Kind = "BuildTimeout"
	Unsatisfiable        Kind = "Unsatisfiable"
	CacheError           Kind = "CacheError"
	CacheCorrupt         Kind = "CacheCorrupt"
	NoPreviousGeneration Kind = "NoPreviousGeneration"
	LockHeld             Kind = "LockHeld"
	Internal             Kind = "Internal"
)

// userError is the set of kinds that represent a user mistake rather
// than a system fault; everything else exits 2.
var userError = map[Kind]bool{
	RepoExists:           true,
	RepoMissing:          true,
	RecipeMalformed:      true,
	NoBuildSystem:        true,
	Unsatisfiable:        true,
	NoPreviousGeneration: true,
}

// Error is the structured error every core operation returns. It
// carries enough for the CLI to print a one-line message and pick an
// exit code without inspecting the wrapped cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// ExitCode implements the ExitCoder interface the CLI entrypoint
// checks for.
func (e *Error) ExitCode() int {
	if userError[e.Kind] {
		return 1
	}
	return 2
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around an underlying cause.
func Wrap(kind Kind, code string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// KindOf extracts the Kind of err if it is an *Error, or Internal if
// it is some other error (a bare error should never escape a
// component, but callers composing errors from subprocesses or
// third-party libraries may not have one yet to wrap).
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return Internal
}
