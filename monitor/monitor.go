// Package monitor follows the stderr log a capture program writes, so a
// running capture can be watched from another terminal.
package monitor

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nxadm/tail"
)

// Monitor watches a file for new lines
type Monitor struct {
	filePath string
	tail     *tail.Tail
}

// NewMonitor starts following filePath. With fromStart the existing content
// is emitted first; otherwise only lines written from now on. The file does
// not have to exist yet.
func NewMonitor(filePath string, fromStart bool) (*Monitor, error) {
	location := &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	if fromStart {
		location = &tail.SeekInfo{Offset: 0, Whence: io.SeekStart}
	}

	t, err := tail.TailFile(filePath, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      true, // capture logs are written by another process, often on Windows
		Location:  location,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to tail file: %w", err)
	}

	return &Monitor{
		filePath: filePath,
		tail:     t,
	}, nil
}

// Lines returns the channel of new lines
func (m *Monitor) Lines() <-chan *tail.Line {
	return m.tail.Lines
}

// Path returns the followed file.
func (m *Monitor) Path() string {
	return m.filePath
}

// Stop stops the monitor
func (m *Monitor) Stop() error {
	err := m.tail.Stop()
	m.tail.Cleanup()
	return err
}

// ErrInvalidProcessID is returned for a process id that can't be part of a
// log file name.
var ErrInvalidProcessID = errors.New("monitor: invalid process id")

// LogPath returns where the stderr log of the capture for processID lives
// inside dir. The id must be a plain name, so the log can't land outside dir.
func LogPath(dir, processID string) (string, error) {
	if processID == "" || processID == "." || processID == ".." ||
		strings.ContainsAny(processID, `/\:`) || filepath.Base(processID) != processID {
		return "", fmt.Errorf("%w: %q", ErrInvalidProcessID, processID)
	}
	return filepath.Join(dir, "capture-"+processID+".log"), nil
}
