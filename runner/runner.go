// Package runner executes shell commands in package directories with
// captured output.
//
// The orchestrator never changes the process working directory; each child
// gets its directory set explicitly, so concurrent test runs and nested
// invocations cannot interfere with each other.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result holds the captured output of a completed command.
type Result struct {
	Stdout string
	Stderr string
}

// Runner abstracts command execution for testing.
type Runner interface {
	// Run executes command with dir as the working directory and returns
	// captured output. A non-zero exit returns a *CommandError with the
	// output attached.
	Run(ctx context.Context, dir, command string) (*Result, error)
}

// CommandError reports a command that exited non-zero, with whatever
// output it produced.
type CommandError struct {
	Command  string
	Dir      string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q failed in %s (exit %d)", e.Command, e.Dir, e.ExitCode)
	if detail := strings.TrimSpace(e.Stderr); detail != "" {
		return msg + ": " + detail
	}
	if detail := strings.TrimSpace(e.Stdout); detail != "" {
		return msg + ": " + detail
	}
	return msg
}

// Unwrap returns the underlying exec error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands through a shell via os/exec.
type ExecRunner struct {
	// Shell is the interpreter, "/bin/sh" when empty.
	Shell string
}

// NewExecRunner returns a runner using the default shell.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner. Stdout and stderr are captured separately and
// returned whether or not the command succeeds.
func (r *ExecRunner) Run(ctx context.Context, dir, command string) (*Result, error) {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return result, nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return result, &CommandError{
		Command:  command,
		Dir:      dir,
		ExitCode: exitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		Err:      err,
	}
}
