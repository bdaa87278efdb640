// Package config loads the loopback configuration with viper.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/micha/app-loopback/logging"
)

// Binary names shipped under <bin_dir>/<platform dir>/.
const (
	ListerBinary   = "ProcessList.exe"
	CapturerBinary = "ApplicationLoopback.exe"
)

// Config represents the complete loopback configuration
type Config struct {
	Binaries BinariesConfig `mapstructure:"binaries"`
	Platform PlatformConfig `mapstructure:"platform"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Meter    MeterConfig    `mapstructure:"meter"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BinariesConfig locates the external helper programs
type BinariesConfig struct {
	// Dir holds one sub-directory per platform, e.g. bin/win32-x64.
	// Empty means "bin" next to the executable.
	Dir string `mapstructure:"dir"`
	// Lister overrides the full path of the window lister
	Lister string `mapstructure:"lister"`
	// Capturer overrides the full path of the loopback capture program
	Capturer string `mapstructure:"capturer"`
}

// PlatformConfig is the platform the helper binaries were built for
type PlatformConfig struct {
	OS         string `mapstructure:"os"`
	Arch       string `mapstructure:"arch"`
	MinVersion int    `mapstructure:"min_version"`
}

// CaptureConfig controls capture sessions
type CaptureConfig struct {
	// ReadBufferSize is the largest chunk read from a capture program, in bytes
	ReadBufferSize int `mapstructure:"read_buffer_size"`
	// LogDir receives one stderr log per capture when set
	LogDir string `mapstructure:"log_dir"`
}

// MeterConfig controls the level meter
type MeterConfig struct {
	// Channels is the number of interleaved channels in the capture stream
	Channels int `mapstructure:"channels"`
	// WindowFrames is the number of frames averaged into one level reading
	WindowFrames int `mapstructure:"window_frames"`
	// RefreshMs is the redraw interval in milliseconds
	RefreshMs int     `mapstructure:"refresh_ms"`
	MinDB     float64 `mapstructure:"min_db"`
	MaxDB     float64 `mapstructure:"max_db"`
	// Bars is the width of a meter bar in characters
	Bars int `mapstructure:"bars"`
}

// PlaybackConfig controls local playback of a capture
type PlaybackConfig struct {
	SampleRate int `mapstructure:"sample_rate"`
	Channels   int `mapstructure:"channels"`
	// Device is a playback device name; empty uses the default device
	Device string `mapstructure:"device"`
	// BufferMs bounds how much audio is queued ahead of the device
	BufferMs int `mapstructure:"buffer_ms"`
}

// LoggingConfig controls logging
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File writes logs to a file instead of stderr
	File string `mapstructure:"file"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Platform: PlatformConfig{
			OS:         "windows",
			Arch:       "amd64",
			MinVersion: 10,
		},
		Capture: CaptureConfig{
			ReadBufferSize: 32 * 1024,
		},
		Meter: MeterConfig{
			Channels:     2,
			WindowFrames: 1024,
			RefreshMs:    50,
			MinDB:        -60,
			MaxDB:        -20,
			Bars:         50,
		},
		Playback: PlaybackConfig{
			SampleRate: 48000,
			Channels:   2,
			BufferMs:   500,
		},
		Logging: LoggingConfig{
			Level:  logging.LevelInfo,
			Format: logging.FormatText,
		},
	}
}

// SetDefaults registers the defaults with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("binaries.dir", defaults.Binaries.Dir)
	v.SetDefault("binaries.lister", defaults.Binaries.Lister)
	v.SetDefault("binaries.capturer", defaults.Binaries.Capturer)

	v.SetDefault("platform.os", defaults.Platform.OS)
	v.SetDefault("platform.arch", defaults.Platform.Arch)
	v.SetDefault("platform.min_version", defaults.Platform.MinVersion)

	v.SetDefault("capture.read_buffer_size", defaults.Capture.ReadBufferSize)
	v.SetDefault("capture.log_dir", defaults.Capture.LogDir)

	v.SetDefault("meter.channels", defaults.Meter.Channels)
	v.SetDefault("meter.window_frames", defaults.Meter.WindowFrames)
	v.SetDefault("meter.refresh_ms", defaults.Meter.RefreshMs)
	v.SetDefault("meter.min_db", defaults.Meter.MinDB)
	v.SetDefault("meter.max_db", defaults.Meter.MaxDB)
	v.SetDefault("meter.bars", defaults.Meter.Bars)

	v.SetDefault("playback.sample_rate", defaults.Playback.SampleRate)
	v.SetDefault("playback.channels", defaults.Playback.Channels)
	v.SetDefault("playback.device", defaults.Playback.Device)
	v.SetDefault("playback.buffer_ms", defaults.Playback.BufferMs)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.file", defaults.Logging.File)
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that can't work
func (c *Config) Validate() error {
	var errs []error

	if c.Capture.ReadBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("capture.read_buffer_size must be positive, got %d", c.Capture.ReadBufferSize))
	}
	if c.Meter.Channels <= 0 {
		errs = append(errs, fmt.Errorf("meter.channels must be positive, got %d", c.Meter.Channels))
	}
	if c.Meter.WindowFrames <= 0 {
		errs = append(errs, fmt.Errorf("meter.window_frames must be positive, got %d", c.Meter.WindowFrames))
	}
	if c.Meter.RefreshMs <= 0 {
		errs = append(errs, fmt.Errorf("meter.refresh_ms must be positive, got %d", c.Meter.RefreshMs))
	}
	if c.Meter.MinDB >= c.Meter.MaxDB {
		errs = append(errs, fmt.Errorf("meter.min_db (%v) must be below meter.max_db (%v)", c.Meter.MinDB, c.Meter.MaxDB))
	}
	if c.Meter.Bars <= 0 {
		errs = append(errs, fmt.Errorf("meter.bars must be positive, got %d", c.Meter.Bars))
	}
	if c.Playback.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("playback.sample_rate must be positive, got %d", c.Playback.SampleRate))
	}
	if c.Playback.Channels <= 0 {
		errs = append(errs, fmt.Errorf("playback.channels must be positive, got %d", c.Playback.Channels))
	}
	if c.Playback.BufferMs <= 0 {
		errs = append(errs, fmt.Errorf("playback.buffer_ms must be positive, got %d", c.Playback.BufferMs))
	}
	if !validLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %v, got %q", logging.ValidLevels(), c.Logging.Level))
	}

	return errors.Join(errs...)
}

func validLevel(level string) bool {
	for _, l := range logging.ValidLevels() {
		if strings.EqualFold(l, level) {
			return true
		}
	}
	return false
}

// RefreshInterval returns the meter redraw interval
func (c *MeterConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshMs) * time.Millisecond
}

// PlatformDir names the per-platform binary directory, using the same
// "<platform>-<arch>" names as the prebuilt helper packages (win32-x64).
func PlatformDir(goos, goarch string) string {
	platform := goos
	if goos == "windows" {
		platform = "win32"
	}
	arch := goarch
	switch goarch {
	case "amd64":
		arch = "x64"
	case "386":
		arch = "ia32"
	}
	return platform + "-" + arch
}

// ListerPath returns the window lister path. Without an explicit path or
// Dir, binaries are looked up under baseDir/bin.
func (c *BinariesConfig) ListerPath(baseDir, goos, goarch string) string {
	if c.Lister != "" {
		return c.Lister
	}
	return filepath.Join(c.binDir(baseDir), PlatformDir(goos, goarch), ListerBinary)
}

// CapturerPath returns the capture program path, looked up the same way as
// ListerPath.
func (c *BinariesConfig) CapturerPath(baseDir, goos, goarch string) string {
	if c.Capturer != "" {
		return c.Capturer
	}
	return filepath.Join(c.binDir(baseDir), PlatformDir(goos, goarch), CapturerBinary)
}

func (c *BinariesConfig) binDir(baseDir string) string {
	if c.Dir == "" {
		return filepath.Join(baseDir, "bin")
	}
	return c.Dir
}
