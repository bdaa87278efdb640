// Package platform checks that the host matches the target the external
// helper binaries were built for.
package platform

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// Requirement describes the platform the helper binaries need. Empty fields
// match anything; MinVersion 0 skips the OS version check.
type Requirement struct {
	OS         string
	Arch       string
	MinVersion int
}

// Default is what the shipped binaries target: 64-bit Windows 10 and later.
func Default() Requirement {
	return Requirement{OS: "windows", Arch: "amd64", MinVersion: 10}
}

func (r Requirement) String() string {
	s := valueOr(r.OS, "any") + "/" + valueOr(r.Arch, "any")
	if r.MinVersion > 0 {
		s += fmt.Sprintf(" (version %d and later)", r.MinVersion)
	}
	return s
}

// UnsupportedPlatformError reports a host that doesn't satisfy Want.
type UnsupportedPlatformError struct {
	OS      string
	Arch    string
	Version string
	Want    Requirement
}

func (e *UnsupportedPlatformError) Error() string {
	host := e.OS + "/" + e.Arch
	if e.Version != "" {
		host += " " + e.Version
	}
	return fmt.Sprintf("this package is currently only available for %s, running on %s", e.Want, host)
}

// Check returns an *UnsupportedPlatformError if the running host doesn't
// satisfy req.
func Check(ctx context.Context, req Requirement) error {
	if err := check(runtime.GOOS, runtime.GOARCH, "", req); err != nil {
		return err
	}
	if req.MinVersion <= 0 {
		return nil
	}

	_, _, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to read platform version: %w", err)
	}
	return check(runtime.GOOS, runtime.GOARCH, version, req)
}

// check compares a host description against req. An empty version skips the
// version comparison.
func check(goos, goarch, version string, req Requirement) error {
	unsupported := &UnsupportedPlatformError{OS: goos, Arch: goarch, Version: version, Want: req}

	if req.OS != "" && req.OS != goos {
		return unsupported
	}
	if req.Arch != "" && req.Arch != goarch {
		return unsupported
	}
	if version == "" || req.MinVersion <= 0 {
		return nil
	}

	major, ok := majorVersion(version)
	if !ok || major < req.MinVersion {
		return unsupported
	}
	return nil
}

// majorVersion extracts the leading number of a version such as
// "10.0.19045 Build 19045".
func majorVersion(version string) (int, bool) {
	version = strings.TrimSpace(version)
	end := strings.IndexFunc(version, func(r rune) bool { return r < '0' || r > '9' })
	if end == -1 {
		end = len(version)
	}
	n, err := strconv.Atoi(version[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
