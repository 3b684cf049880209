// Package run executes external commands on behalf of the build and
// platform-detection code. Commands always run with an explicit working
// directory; the process working directory is never changed.
package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// CommandError reports a failed external command together with the exit
// code it returned. The driver propagates this code as the process exit
// status.
type CommandError struct {
	Name     string // command name, e.g. "make"
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed with exit code %d: %v", e.Name, e.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner executes external commands with context support.
type Runner struct {
	logger *zap.Logger
}

// NewRunner creates a runner that logs command starts at debug level.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

// Run executes a command in dir with the given extra environment entries
// appended to the current environment. Stdout and stderr pass through to
// the invoking terminal, matching the behavior of running the tool by
// hand. A non-zero exit wraps into *CommandError carrying the child's
// exit code.
func (r *Runner) Run(ctx context.Context, dir string, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	r.logger.Debug("running command",
		zap.String("command", name),
		zap.Strings("args", args),
		zap.String("dir", dir))

	if err := cmd.Run(); err != nil {
		return wrapExit(name, err)
	}
	return nil
}

// Output executes a command in dir and returns its trimmed stdout. Used
// for helpers whose single output line is the result, like config.guess.
func (r *Runner) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr

	r.logger.Debug("running command",
		zap.String("command", name),
		zap.Strings("args", args),
		zap.String("dir", dir))

	out, err := cmd.Output()
	if err != nil {
		return "", wrapExit(name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// wrapExit converts exec errors into *CommandError so the driver can
// propagate the child's exit status.
func wrapExit(name string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{
			Name:     name,
			ExitCode: exitErr.ExitCode(),
			Err:      err,
		}
	}
	// Command did not start (not found, permission); there is no child
	// exit code to propagate.
	return &CommandError{
		Name:     name,
		ExitCode: 1,
		Err:      fmt.Errorf("start command: %w", err),
	}
}
