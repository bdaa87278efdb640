// Package capture runs the external loopback capture program, one instance
// per target process id, and forwards its raw PCM output to a callback.
//
// A Registry enforces that at most one capture exists per process id:
//
//	reg := capture.NewRegistry(capturerPath)
//	defer reg.StopAll()
//
//	id, err := reg.Start("4242", capture.Options{
//	    OnData: func(chunk []byte) { analyzer.Write(chunk) },
//	})
//	if err != nil {
//	    return err
//	}
//	...
//	reg.Stop(id)
//
// A capture whose program exits on its own is unregistered automatically, so
// the same process id can be started again.
package capture

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/micha/app-loopback/proc"
)

// Registry tracks the active captures. It is safe for concurrent use.
type Registry struct {
	path    string
	command proc.CommandFunc
	bufSize int
	log     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// Option configures a Registry.
type Option func(*Registry)

// WithCommand overrides how capture processes are built.
func WithCommand(fn proc.CommandFunc) Option {
	return func(r *Registry) { r.command = fn }
}

// WithLogger sets the logger used by the registry and its sessions.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithReadBufferSize sets the maximum chunk size read from a capture
// program. Non-positive values keep the default.
func WithReadBufferSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.bufSize = n
		}
	}
}

// NewRegistry creates an empty Registry that launches the capture program
// at path.
func NewRegistry(path string, opts ...Option) *Registry {
	r := &Registry{
		path:     path,
		command:  proc.Command,
		bufSize:  DefaultReadBufferSize,
		log:      slog.Default(),
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "capture")
	return r
}

// Start launches a capture for processID and returns processID as the handle
// for Stop. It fails with a *DuplicateCaptureError if a capture for
// processID is already active, and with a *proc.SpawnError if the capture
// program can't be started. On failure the registry is unchanged.
func (r *Registry) Start(processID string, opts Options) (string, error) {
	if processID == "" {
		return "", ErrEmptyProcessID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[processID]; ok {
		return "", &DuplicateCaptureError{ProcessID: processID}
	}

	s, err := startSession(r.command, r.path, processID, r.bufSize, opts, r.log)
	if err != nil {
		return "", err
	}
	r.sessions[processID] = s

	go s.run(func(s *session, err error) {
		r.exited(s, err)
		if opts.OnExit != nil {
			opts.OnExit(err)
		}
	})

	s.log.Info("capture started")
	return processID, nil
}

// Stop terminates the capture for processID and unregisters it. It returns
// false, doing nothing, if no capture is active for processID. Once Stop
// returns no new OnData call starts for that capture; a call already running
// is left to finish. Stop does not block on it and may be called from OnData.
func (r *Registry) Stop(processID string) bool {
	r.mu.Lock()
	s, ok := r.sessions[processID]
	if ok {
		delete(r.sessions, processID)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	s.stop()
	s.log.Info("capture stopped")
	return true
}

// StopAll stops every active capture and returns how many were stopped.
func (r *Registry) StopAll() int {
	r.mu.Lock()
	sessions := make([]*session, 0, len(r.sessions))
	for id, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.stop()
	}
	if len(sessions) > 0 {
		r.log.Info("all captures stopped", "count", len(sessions))
	}
	return len(sessions)
}

// Has reports whether a capture is active for processID.
func (r *Registry) Has(processID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[processID]
	return ok
}

func (r *Registry) lookup(processID string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[processID]
	return s, ok
}

// Active returns the process ids with an active capture, sorted.
func (r *Registry) Active() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of active captures.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// exited frees the slot of a capture whose program went away, unless the
// slot was already released or now belongs to a newer session.
func (r *Registry) exited(s *session, err error) {
	r.mu.Lock()
	current, ok := r.sessions[s.processID]
	freed := ok && current == s
	if freed {
		delete(r.sessions, s.processID)
	}
	r.mu.Unlock()

	if freed {
		s.log.Warn("capture exited on its own", "error", err)
	}
}
