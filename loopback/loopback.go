// Package loopback is the host-facing API: list windows, then start and
// stop per-process audio captures. A Host owns its capture registry; Close
// it to make sure no capture program outlives the host.
//
//	host, err := loopback.New(ctx, loopback.Config{
//	    ListerPath:   listerPath,
//	    CapturerPath: capturerPath,
//	    Platform:     platform.Default(),
//	})
//	if err != nil {
//	    return err // includes *platform.UnsupportedPlatformError
//	}
//	defer host.Close()
package loopback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/micha/app-loopback/capture"
	"github.com/micha/app-loopback/monitor"
	"github.com/micha/app-loopback/platform"
	"github.com/micha/app-loopback/proc"
	"github.com/micha/app-loopback/window"
)

// Config configures a Host.
type Config struct {
	ListerPath   string
	CapturerPath string

	// Platform is checked by New before anything else happens.
	Platform platform.Requirement

	// ReadBufferSize is the largest chunk read from a capture program.
	ReadBufferSize int

	// LogDir, when set, receives the stderr of every capture program in
	// capture-<processId>.log.
	LogDir string

	Logger *slog.Logger

	// Command overrides how external programs are built.
	Command proc.CommandFunc
}

// Host exposes window enumeration and capture control.
type Host struct {
	enumerator *window.Enumerator
	registry   *capture.Registry
	logDir     string
	log        *slog.Logger

	closeOnce sync.Once
}

// New checks the platform and builds a Host with an empty registry.
func New(ctx context.Context, cfg Config) (*Host, error) {
	if err := platform.Check(ctx, cfg.Platform); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	command := cfg.Command
	if command == nil {
		command = proc.Command
	}

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create capture log dir: %w", err)
		}
	}

	return &Host{
		enumerator: window.NewEnumerator(cfg.ListerPath,
			window.WithCommand(command),
			window.WithLogger(log),
		),
		registry: capture.NewRegistry(cfg.CapturerPath,
			capture.WithCommand(command),
			capture.WithLogger(log),
			capture.WithReadBufferSize(cfg.ReadBufferSize),
		),
		logDir: cfg.LogDir,
		log:    log.With("component", "host"),
	}, nil
}

// ListWindows returns the visible windows and their owning process ids.
func (h *Host) ListWindows(ctx context.Context) ([]window.Record, error) {
	return h.enumerator.List(ctx)
}

// StartCapture starts capturing the audio of processID and returns
// processID. It fails with a *capture.DuplicateCaptureError if that process
// is already being captured.
func (h *Host) StartCapture(processID string, opts capture.Options) (string, error) {
	var logFile *os.File
	if h.logDir != "" && opts.Stderr == nil && processID != "" {
		path, err := monitor.LogPath(h.logDir, processID)
		if err != nil {
			return "", err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return "", fmt.Errorf("failed to open capture log: %w", err)
		}
		logFile = f
		opts.Stderr = f

		onExit := opts.OnExit
		opts.OnExit = func(err error) {
			logFile.Close()
			if onExit != nil {
				onExit(err)
			}
		}
	}

	id, err := h.registry.Start(processID, opts)
	if err != nil && logFile != nil {
		logFile.Close()
	}
	return id, err
}

// StopCapture stops the capture of processID. It returns false if there was
// none.
func (h *Host) StopCapture(processID string) bool {
	return h.registry.Stop(processID)
}

// Captures returns the process ids currently being captured.
func (h *Host) Captures() []string {
	return h.registry.Active()
}

// Close stops every active capture. It is safe to call more than once.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		if n := h.registry.StopAll(); n > 0 {
			h.log.Info("stopped captures on close", "count", n)
		}
	})
	return nil
}

var _ io.Closer = (*Host)(nil)
