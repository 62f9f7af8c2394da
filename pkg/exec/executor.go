// Package exec provides the command execution abstraction used to invoke
// external toolchain binaries (compiler, objcopy, objdump, size, clang-tidy).
package exec

import (
	"context"
	"time"
)

// ExecutorType represents the type of executor.
type ExecutorType string

// Executor type constants.
const (
	ExecutorTypeLocal ExecutorType = "local"
	ExecutorTypeFake  ExecutorType = "fake"
)

// Executor defines the interface for executing external tool commands.
type Executor interface {
	// Run executes a command with the given options and returns the result.
	Run(ctx context.Context, cmd []string, opts *Opts) (Result, error)

	// Name returns the executor type name for logging/debugging.
	Name() ExecutorType
}

// Opts contains options for command execution.
type Opts struct {
	// Env contains additional environment variables (KEY=VALUE format).
	Env []string

	// Timeout is the maximum duration for command execution.
	Timeout time.Duration

	// WorkDir is the working directory for the command.
	WorkDir string
}

// Result contains the result of command execution.
type Result struct {
	// Stdout contains the standard output.
	Stdout string

	// Stderr contains the standard error output.
	Stderr string

	// Duration is how long the command took to execute.
	Duration time.Duration

	// ExitCode is the exit code of the command.
	ExitCode int
}

// DefaultOpts returns default execution options. Tool probes and post-build
// transforms are one-shot actions, so the timeout is short.
func DefaultOpts() Opts {
	return Opts{
		Timeout: 2 * time.Minute,
	}
}
