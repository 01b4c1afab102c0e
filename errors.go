package ipcmd

import (
	"errors"
	"strconv"
)

// Sentinel errors for command execution.
var (
	// ErrNotFound indicates a required external binary is not present on
	// PATH. Returned by New for the ip binary itself and by streaming
	// operations when stdbuf is missing.
	ErrNotFound = errors.New("ipcmd: command not found in PATH")

	// ErrSpawn indicates the child process could not be started (binary
	// vanished after resolution, permission denied, resource limits).
	// Transient at the OS level; callers may retry.
	ErrSpawn = errors.New("ipcmd: unable to spawn process")

	// ErrTimeout indicates the command exceeded the client timeout. The
	// child process is killed and reaped before this error is returned.
	ErrTimeout = errors.New("ipcmd: command timed out")

	// ErrInvalidUTF8 indicates command output that is not valid UTF-8.
	// Output is never silently repaired with replacement characters.
	ErrInvalidUTF8 = errors.New("ipcmd: output is not valid UTF-8")
)

// CommandError represents an ip invocation that exited with a non-zero
// status. Both captured streams are carried verbatim so failures can be
// diagnosed without re-running the command — stderr is preserved even when
// the call requested stdout-only capture. Wraps the underlying error to
// keep the chain intact; consumers can errors.As to *exec.ExitError for
// OS-level detail (signal info, etc.).
//
// Code semantics: positive = exit status, negative (-1) = signal-killed.
type CommandError struct {
	Stdout string
	Stderr string
	Code   int
	Err    error
}

func (e *CommandError) Error() string {
	return "ipcmd: command failed (exit " + strconv.Itoa(e.Code) +
		"), stdout: " + strconv.Quote(e.Stdout) +
		", stderr: " + strconv.Quote(e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode extracts the exit code from an error chain containing
// *CommandError. Returns (0, false) if the chain has none. Convenience
// wrapper around errors.As — equivalent to:
//
//	var cmdErr *CommandError
//	if errors.As(err, &cmdErr) { return cmdErr.Code, true }
func ExitCode(err error) (int, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code, true
	}
	return 0, false
}
