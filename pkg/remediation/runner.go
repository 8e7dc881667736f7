package remediation

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

// Result describes a finished command. ExitCode is -1 when the command
// could not be started.
type Result struct {
	ExitCode int
	Duration time.Duration
	Err      error
}

// Runner executes a command line and blocks until it exits
type Runner interface {
	Run(ctx context.Context, commandLine string) Result
}

// ShellRunner runs command lines through the platform command interpreter
// and waits without a timeout.
type ShellRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	logger logging.Logger
}

// NewShellRunner creates a runner whose children inherit the watchdog's
// stdout and stderr.
func NewShellRunner(logger logging.Logger) *ShellRunner {
	return &ShellRunner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		logger: logger,
	}
}

// Run starts commandLine and waits for it to exit
func (r *ShellRunner) Run(ctx context.Context, commandLine string) Result {
	if ctx == nil {
		return Result{ExitCode: -1, Err: errors.NewValidationError("context cannot be nil", nil)}
	}

	cmd := shellCommand(ctx, commandLine)
	cmd.Stdin = nil
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	r.logger.Debugf("Executing command, path: %s, args: %v", cmd.Path, cmd.Args)

	started := time.Now()
	err := cmd.Run()
	result := Result{Duration: time.Since(started)}

	if err == nil {
		return result
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		result.Err = errors.NewProcessError("command exited with failure", err).
			WithContext("command", commandLine).
			WithContext("exit_code", result.ExitCode)
		return result
	}

	result.ExitCode = -1
	result.Err = errors.NewProcessError("failed to run command", err).WithContext("command", commandLine)
	return result
}
