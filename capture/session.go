package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync/atomic"

	"github.com/micha/app-loopback/proc"
)

// DefaultReadBufferSize is the largest chunk read from a capture program in
// one go.
const DefaultReadBufferSize = 32 * 1024

// Options configures a single capture.
type Options struct {
	// OnData receives every chunk of raw PCM in the order the capture
	// program wrote it. It runs on the session's reader goroutine and may
	// call Stop, including for its own process id. The chunk belongs to the
	// callee. Chunk boundaries are not aligned to sample frames.
	OnData func(chunk []byte)

	// OnExit is called once the capture program has exited and the last
	// OnData call has returned, whether it was stopped or died on its own.
	// err is the exit status from Wait.
	OnExit func(err error)

	// Stderr receives the capture program's stderr. Discarded if nil.
	Stderr io.Writer
}

// session is one running instance of the capture program.
type session struct {
	processID string
	cmd       *exec.Cmd
	stdout    io.Reader
	onData    func([]byte)
	bufSize   int
	log       *slog.Logger

	// stopped is checked before every delivery. Once it is set no new
	// OnData call starts; one already running is left to finish.
	stopped  atomic.Bool
	stopping chan struct{}

	done chan struct{}
}

func startSession(command proc.CommandFunc, path, processID string, bufSize int, opts Options, log *slog.Logger) (*session, error) {
	// The capture runs until stopped, so it isn't bound to a caller context.
	cmd := command(context.Background(), path, processID)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get capture stdout: %w", err)
	}
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}

	if err := proc.Start(cmd); err != nil {
		return nil, err
	}

	return &session{
		processID: processID,
		cmd:       cmd,
		stdout:    stdout,
		onData:    opts.OnData,
		bufSize:   bufSize,
		log:       log.With("process_id", processID, "pid", cmd.Process.Pid),
		stopping:  make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// run pumps stdout, reaps the process and reports the exit once the pump
// is done. A stopped session is reaped right away, so a callback that is
// still blocked doesn't keep the program's exit from being collected.
func (s *session) run(exited func(*session, error)) {
	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		s.pump(s.stdout)
	}()

	select {
	case <-pumped:
	case <-s.stopping:
	}

	err := s.cmd.Wait()
	close(s.done)

	<-pumped
	exited(s, err)
}

func (s *session) pump(r io.Reader) {
	buf := make([]byte, s.bufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.deliver(chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.stopped.Load() {
				s.log.Debug("capture stdout read failed", "error", err)
			}
			return
		}
	}
}

func (s *session) deliver(chunk []byte) {
	if s.onData == nil || s.stopped.Load() {
		return
	}
	s.onData(chunk)
}

// stop silences the session and signals the capture program to exit. It
// waits neither for the program nor for a running OnData call, so it is
// safe to call from inside OnData.
func (s *session) stop() {
	if s.stopped.Swap(true) {
		return
	}
	if err := proc.Terminate(s.cmd.Process); err != nil {
		s.log.Warn("failed to terminate capture", "error", err)
	}
	close(s.stopping)
}
