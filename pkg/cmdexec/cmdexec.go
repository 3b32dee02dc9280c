// Package cmdexec runs external administration tools (ethtool, ip) with a
// bounded run time and captures their output.
package cmdexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/newtron-network/queuecheck/pkg/util"
)

const stderrLimit = 8 << 10 // 8 KiB

// DefaultTimeout bounds every invocation unless the Exec says otherwise.
const DefaultTimeout = 10 * time.Second

// Runner executes a command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}

// CommandError is returned when a command exits non-zero, cannot be started
// or exceeds its time bound.
type CommandError struct {
	Cmd      string
	ExitCode int // -1 when the process did not exit normally
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("'%s' failed: %v", e.Cmd, e.Err)
	if e.Stderr != "" {
		msg += " (stderr: " + e.Stderr + ")"
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the command was killed because its time bound expired.
func (e *CommandError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Exec runs commands on the local host.
type Exec struct {
	// Timeout bounds each invocation; zero means DefaultTimeout.
	Timeout time.Duration
}

// Run executes name with args. On failure the returned error is a
// *CommandError; a timeout unwraps to context.DeadlineExceeded.
func (e *Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	cmdStr := strings.Join(append([]string{name}, args...), " ")
	util.Debugf("executing: %s", cmdStr)

	out, err := cmd.Output()
	if err != nil {
		s := stderr.String()
		if len(s) > stderrLimit {
			s = s[:stderrLimit] + "... (truncated)"
		}
		// Normalize so callers can errors.Is(err, context.DeadlineExceeded)
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return out, &CommandError{
			Cmd:      cmdStr,
			ExitCode: exitCode(err),
			Stderr:   strings.TrimSpace(s),
			Err:      err,
		}
	}

	return out, nil
}

func exitCode(err error) int {
	var v *exec.ExitError
	if errors.As(err, &v) {
		return v.ExitCode()
	}
	return -1
}
