// Package transformer rewrites cells by piping them through external
// commands and removes duplicate rows.
//
// A Runner executes one command for one cell: the cell value is written to
// the command's stdin and its stdout, minus trailing line breaks, becomes the
// new cell value. ShellRunner is the production Runner; tests substitute
// their own.
package transformer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultShell runs -x commands when no shell is configured.
const DefaultShell = "/bin/sh"

// DefaultTimeout bounds a single command invocation.
const DefaultTimeout = 30 * time.Second

// maxStderr caps the stderr text kept on an ExecError.
const maxStderr = 512

// ErrTimeout is wrapped by ExecError when a command exceeds its deadline.
var ErrTimeout = errors.New("command timed out")

// Runner executes command with input on stdin and returns its output.
type Runner interface {
	Run(ctx context.Context, command, input string) (string, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, command, input string) (string, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, command, input string) (string, error) {
	return f(ctx, command, input)
}

// ExecError reports a failed invocation. Row and Column are 1-based and
// refer to the table entering the transform stage; they are zero when the
// error comes straight from a Runner.
type ExecError struct {
	Row     int
	Column  int
	Command string
	Err     error
	Stderr  string
}

func (e *ExecError) Error() string {
	var b strings.Builder
	if e.Row > 0 {
		fmt.Fprintf(&b, "row %d column %d: ", e.Row, e.Column)
	}
	fmt.Fprintf(&b, "command %q: %v", e.Command, e.Err)
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error { return e.Err }

// ShellRunner runs commands as `<Shell> -c <command>`.
type ShellRunner struct {
	Shell   string        // defaults to DefaultShell
	Timeout time.Duration // per invocation; zero disables
	// OKCodes lists the exit codes treated as success. Nil means {0}.
	OKCodes []int
	// Env, when non-nil, replaces the environment of the child.
	Env []string
}

// Run implements Runner.
func (r ShellRunner) Run(ctx context.Context, command, input string) (string, error) {
	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, shell, "-c", command)
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = r.Env
	cmd.WaitDelay = time.Second
	configureProcess(cmd)

	err := cmd.Run()
	switch {
	case ctx.Err() != nil:
		return "", ctx.Err()
	case runCtx.Err() != nil:
		return "", &ExecError{Command: command, Err: fmt.Errorf("%w after %s", ErrTimeout, r.Timeout), Stderr: clip(stderr.String())}
	case err != nil:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || !r.accepts(exitErr.ExitCode()) {
			return "", &ExecError{Command: command, Err: err, Stderr: clip(stderr.String())}
		}
	}
	return strings.TrimRight(stdout.String(), "\r\n"), nil
}

func (r ShellRunner) accepts(code int) bool {
	if r.OKCodes == nil {
		return code == 0
	}
	for _, c := range r.OKCodes {
		if c == code {
			return true
		}
	}
	return false
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return s[:maxStderr] + "..."
	}
	return s
}
