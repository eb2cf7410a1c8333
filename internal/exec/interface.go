// Package exec provides an interface for command execution.
package exec

import (
	"context"
	"time"
)

// Result holds the outcome of a completed command.
type Result struct {
	// ExitCode is the command's exit code. -1 if the command did not run.
	ExitCode int
	// Stdout is the captured standard output.
	Stdout string
	// Stderr is the captured standard error.
	Stderr string
	// TimedOut indicates the command hit its deadline.
	TimedOut bool
}

// Passed reports whether the command exited zero.
func (r Result) Passed() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// Run executes a shell command through "sh -c" with a hard timeout,
	// capturing exit code and separated stdout/stderr. A zero timeout
	// means no deadline beyond the context's.
	Run(ctx context.Context, workDir, command string, timeout time.Duration) (Result, error)

	// Output executes a command directly and returns combined
	// stdout/stderr output. The working directory is set to workDir if
	// non-empty.
	Output(ctx context.Context, workDir, name string, args ...string) ([]byte, error)
}
