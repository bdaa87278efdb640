package main

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/micha/app-loopback/config"
)

// executableDir returns the directory of the running binary, which is where
// the bin/ directory ships by default.
func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

func binaryPaths(cfg *config.Config) (lister, capturer string) {
	base := executableDir()
	lister = cfg.Binaries.ListerPath(base, runtime.GOOS, runtime.GOARCH)
	capturer = cfg.Binaries.CapturerPath(base, runtime.GOOS, runtime.GOARCH)
	return lister, capturer
}
