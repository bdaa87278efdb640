//go:build windows

package proc

import (
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
		HideWindow:    true,
	}
}

// terminate uses TerminateProcess; the helper programs have no console to
// receive a ctrl-break and no other shutdown protocol.
func terminate(p *os.Process) error {
	return p.Kill()
}
