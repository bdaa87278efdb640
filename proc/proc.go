// Package proc holds the process plumbing shared by the window lister and
// the capture sessions: detached spawning and termination of the external
// helper programs.
package proc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// SpawnError is returned when an external program could not be started,
// typically because the executable is missing.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// CommandFunc builds the command used to run an external program.
// Tests substitute it to run fake programs.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Command is the default CommandFunc. Arguments are passed straight to the
// program, never through a shell.
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// Start starts cmd detached from the controlling terminal, so the program
// isn't killed just because the caller's shell session ends. A failure is
// reported as a *SpawnError.
func Start(cmd *exec.Cmd) error {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = detachedAttr()
	}
	if err := cmd.Start(); err != nil {
		return &SpawnError{Path: cmd.Path, Err: err}
	}
	return nil
}

// Terminate asks the process to exit and returns without waiting for it.
// Terminating a process that already exited is not an error.
func Terminate(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := terminate(p); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to terminate process %d: %w", p.Pid, err)
	}
	return nil
}
