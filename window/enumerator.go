// Package window enumerates visible application windows by running the
// external window lister and parsing its "<processId>;<title>" output.
package window

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/micha/app-loopback/proc"
)

// maxLineSize bounds a single lister output line.
const maxLineSize = 1024 * 1024

// Enumerator runs the window lister program.
type Enumerator struct {
	path    string
	command proc.CommandFunc
	log     *slog.Logger
}

// Option configures an Enumerator.
type Option func(*Enumerator)

// WithCommand overrides how the lister process is built.
func WithCommand(fn proc.CommandFunc) Option {
	return func(e *Enumerator) { e.command = fn }
}

// WithLogger sets the logger used by the enumerator.
func WithLogger(l *slog.Logger) Option {
	return func(e *Enumerator) { e.log = l }
}

// NewEnumerator creates an Enumerator for the lister executable at path.
func NewEnumerator(path string, opts ...Option) *Enumerator {
	e := &Enumerator{
		path:    path,
		command: proc.Command,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "window")
	return e
}

// List runs the lister and returns the windows it reported, once its output
// stream has closed. No output yields an empty slice, not an error.
// A lister that cannot be started yields a *proc.SpawnError.
// Cancelling ctx kills the lister.
func (e *Enumerator) List(ctx context.Context) ([]Record, error) {
	cmd := e.command(ctx, e.path)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get lister stdout: %w", err)
	}
	// stderr stays nil, which discards it

	if err := proc.Start(cmd); err != nil {
		return nil, err
	}

	records := []Record{}
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if r, ok := ParseLine(scanner.Text()); ok {
			records = append(records, r)
		}
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		// We stopped reading, so the lister could block on a full pipe.
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			e.log.Debug("failed to kill window lister", "error", err)
		}
	}

	waitErr := cmd.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, fmt.Errorf("failed to read lister output: %w", scanErr)
	}
	if waitErr != nil {
		e.log.Debug("window lister exited with error", "error", waitErr)
	}

	e.log.Debug("windows listed", "count", len(records))
	return records, nil
}
