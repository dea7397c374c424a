/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package runner

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"

	"github.com/go-logr/logr"
	"github.com/kballard/go-shellquote"

	cronerrors "github.com/diagridio/go-shell-cron/api/errors"
)

// Interface runs job commands to completion.
type Interface interface {
	// Run executes command synchronously and reports its outcome.
	Run(command string) *Result
}

// Result is the outcome of running a command.
type Result struct {
	// ExitCode is the exit code of the process, or -1 if it never started.
	ExitCode int

	// Stderr is everything the process wrote to standard error.
	Stderr string

	// Err is nil on a zero exit. Otherwise it is a ProcessLaunchFailure or a
	// ProcessNonZeroExit.
	Err error
}

// Success returns true if the process ran and exited with code zero.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Options are the options for creating a new Runner.
type Options struct {
	// Log is the logger to use for logging.
	Log logr.Logger

	// Env, if non-nil, replaces the environment of spawned processes.
	Env []string

	// Dir is the working directory of spawned processes. Empty means the
	// daemon's working directory.
	Dir string
}

// Runner splits commands into words with shell quoting rules and executes
// them directly, without a shell.
type Runner struct {
	log logr.Logger
	env []string
	dir string
}

func New(opts Options) *Runner {
	return &Runner{
		log: opts.Log.WithName("runner"),
		env: opts.Env,
		dir: opts.Dir,
	}
}

// Split tokenizes command into argv using shell word splitting. Quotes and
// escapes are honoured; no expansion is performed.
func Split(command string) ([]string, error) {
	args, err := shellquote.Split(command)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	return args, nil
}

// Run executes command and blocks until the process exits. There is no
// timeout.
func (r *Runner) Run(command string) *Result {
	args, err := Split(command)
	if err != nil {
		return launchFailure(command, err)
	}

	var stderr bytes.Buffer
	//nolint:gosec
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = r.env
	cmd.Dir = r.dir
	cmd.Stderr = &stderr

	r.log.V(1).Info("Starting process", "argv", args)

	if err = cmd.Start(); err != nil {
		return launchFailure(command, err)
	}

	err = cmd.Wait()
	result := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stderr:   stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.Err = cronerrors.NewProcessNonZeroExit(command, exitErr.ExitCode())
	default:
		result.Err = fmt.Errorf("failed waiting for '%s': %w", command, err)
	}

	r.log.V(1).Info("Process exited", "argv", args, "code", result.ExitCode)

	return result
}

func launchFailure(command string, err error) *Result {
	return &Result{
		ExitCode: -1,
		Err:      cronerrors.NewProcessLaunchFailure(command, err),
	}
}
