// Package toolchain invokes the external reduction and fitting tools
// (nicerl2, nicerl3-spect, xspec) as subprocesses.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"nicer/internal/logging"
)

// ErrToolFailed wraps a non-zero exit or a failure to start a tool.
var ErrToolFailed = errors.New("external tool failed")

// Invocation is one external command.
type Invocation struct {
	Tool  string   // executable name or path
	Args  []string // HEASoft-style key=value args or plain args
	Dir   string   // working directory; empty = current
	Env   []string // extra KEY=VALUE entries appended to the environment
	Stdin io.Reader

	// Output, when set, receives a copy of stdout and stderr as written.
	Output io.Writer
}

func (inv Invocation) String() string {
	return strings.TrimSpace(inv.Tool + " " + strings.Join(inv.Args, " "))
}

// Runner runs external tools synchronously.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// ExecRunner runs tools with os/exec and logs their output line by line.
type ExecRunner struct {
	// OutputLevel is the level tool stdout/stderr lines are logged at.
	OutputLevel slog.Level
}

// NewExecRunner returns a runner logging tool output at debug level.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{OutputLevel: slog.LevelDebug}
}

func (r *ExecRunner) Run(ctx context.Context, inv Invocation) error {
	logger := logging.New("toolchain").With("tool", inv.Tool)
	stdout := logging.NewLineWriter(logger, r.OutputLevel, "stdout")
	stderr := logging.NewLineWriter(logger, r.OutputLevel, "stderr")
	defer stdout.Flush()
	defer stderr.Flush()

	cmd := exec.CommandContext(ctx, inv.Tool, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if inv.Output != nil {
		cmd.Stdout = io.MultiWriter(stdout, inv.Output)
		cmd.Stderr = io.MultiWriter(stderr, inv.Output)
	}
	cmd.Stdin = inv.Stdin
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	logger.Info("invoking", "cmd", inv.String(), "dir", inv.Dir)
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logger.Error("tool exited non-zero", "exit_code", exitErr.ExitCode(), "elapsed", elapsed)
			return fmt.Errorf("%w: %s: exit status %d", ErrToolFailed, inv.Tool, exitErr.ExitCode())
		}
		logger.Error("tool did not run", "error", err)
		return fmt.Errorf("%w: %s: %v", ErrToolFailed, inv.Tool, err)
	}
	logger.Info("tool finished", "elapsed", elapsed)
	return nil
}

// KV formats a HEASoft parameter as key=value.
func KV(key, value string) string {
	return key + "=" + value
}

// YesNo formats a boolean HEASoft parameter.
func YesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
