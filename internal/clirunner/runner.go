// Package clirunner executes external resource tools with bounded timeouts
// and captured output. Both command-line backends drive their tools through
// it: one process invocation per operation, no persistent session.
package clirunner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/zosbridge/commongo/pkg/manager"
	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

// Result captures one tool invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Succeeded reports whether the tool exited zero.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// ErrorText returns the most useful error text the tool produced: stderr
// when present, otherwise stdout (the db2 CLP writes diagnostics to stdout).
func (r Result) ErrorText() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Runner invokes one external tool for one resource kind.
type Runner struct {
	Kind    rescapabilities.ResourceKind
	Timeout time.Duration
}

// Run executes the tool with the given arguments and optional stdin, waiting
// at most the runner's timeout. A non-zero exit is not an error here (the
// caller decides per operation), but exceeding the timeout is, reported as a
// distinct TimeoutError rather than a generic failure.
func (r Runner) Run(ctx context.Context, tool string, stdin string, args ...string) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = manager.DefaultTimeoutSeconds * time.Second
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, tool, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{}, manager.NewTimeoutError(r.Kind, tool+" "+strings.Join(args, " "), timeout)
	}

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		// The tool could not be started at all (not installed, not executable).
		return Result{}, manager.NewResourceError(r.Kind, "exec", err).WithContext("tool", tool)
	}

	result.ExitCode = 0
	return result, nil
}
