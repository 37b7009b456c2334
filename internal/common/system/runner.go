// Package system runs host commands (apt, apt-get, sendmail) on behalf of the audit.
package system

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

var (
	// ErrCommand is returned when a command exits unsuccessfully
	ErrCommand = errors.New("command failed")
	// ErrCommandNotFound is returned when the executable is not on PATH
	ErrCommandNotFound = errors.New("command not found")
)

// Runner executes commands on the local host
type Runner struct {
	// env holds extra environment entries in KEY=VALUE form
	env []string
}

// NewRunner creates a Runner.
// Extra environment entries are appended to the inherited environment.
func NewRunner(env ...string) *Runner {
	return &Runner{env: env}
}

// Run executes a command and returns its standard output
func (r *Runner) Run(ctx context.Context, name string, args ...string) (string, error) {
	stdout, _, err := r.runCommand(ctx, nil, name, args...)
	return stdout, err
}

// RunWithInput executes a command with the given bytes on standard input
func (r *Runner) RunWithInput(ctx context.Context, input []byte, name string, args ...string) (string, error) {
	stdout, _, err := r.runCommand(ctx, input, name, args...)
	return stdout, err
}

// runCommand executes a command and returns stdout, stderr, and any error
func (r *Runner) runCommand(ctx context.Context, input []byte, name string, args ...string) (stdout, stderr string, err error) {
	if _, lookErr := exec.LookPath(name); lookErr != nil {
		return "", "", errors.Join(ErrCommandNotFound, lookErr)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if len(r.env) > 0 {
		cmd.Env = append(cmd.Environ(), r.env...)
	}
	if input != nil {
		cmd.Stdin = bytes.NewReader(input)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		// Wrap the error with stderr for context
		if stderr != "" {
			err = errors.Join(ErrCommand, errors.New(strings.TrimSpace(stderr)))
		} else {
			err = errors.Join(ErrCommand, err)
		}
	}

	return stdout, stderr, err
}

// Ensure Runner implements Executor interface
var _ Executor = (*Runner)(nil)
