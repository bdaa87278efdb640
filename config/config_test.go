package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/micha/app-loopback/logging"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Platform.OS != "windows" || cfg.Platform.Arch != "amd64" || cfg.Platform.MinVersion != 10 {
		t.Errorf("Platform = %+v, want windows/amd64 >= 10", cfg.Platform)
	}
	if cfg.Capture.ReadBufferSize != 32*1024 {
		t.Errorf("Capture.ReadBufferSize = %d, want %d", cfg.Capture.ReadBufferSize, 32*1024)
	}
	if cfg.Meter.Channels != 2 || cfg.Meter.WindowFrames != 1024 {
		t.Errorf("Meter = %+v, want 2 channels x 1024 frames", cfg.Meter)
	}
	if cfg.Meter.MinDB != -60 || cfg.Meter.MaxDB != -20 || cfg.Meter.Bars != 50 {
		t.Errorf("Meter bar settings = %+v", cfg.Meter)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults only", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		cfg, err := Load(v)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Meter.RefreshInterval() != 50*time.Millisecond {
			t.Errorf("RefreshInterval() = %v, want 50ms", cfg.Meter.RefreshInterval())
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "loopback.yaml")
		content := "meter:\n  channels: 1\n  max_db: -10\ncapture:\n  log_dir: /tmp/captures\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		v := viper.New()
		SetDefaults(v)
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			t.Fatalf("ReadInConfig() error = %v", err)
		}

		cfg, err := Load(v)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Meter.Channels != 1 {
			t.Errorf("Meter.Channels = %d, want 1", cfg.Meter.Channels)
		}
		if cfg.Meter.MaxDB != -10 {
			t.Errorf("Meter.MaxDB = %v, want -10", cfg.Meter.MaxDB)
		}
		if cfg.Meter.WindowFrames != 1024 {
			t.Errorf("Meter.WindowFrames = %d, want default 1024", cfg.Meter.WindowFrames)
		}
		if cfg.Capture.LogDir != "/tmp/captures" {
			t.Errorf("Capture.LogDir = %q", cfg.Capture.LogDir)
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("meter.min_db", -10)
		v.Set("meter.max_db", -20)
		v.Set("logging.level", "loud")

		_, err := Load(v)
		if err == nil {
			t.Fatal("expected a validation error")
		}
		msg := err.Error()
		if !strings.Contains(msg, "meter.min_db") || !strings.Contains(msg, "logging.level") {
			t.Errorf("error = %q, want both problems reported", msg)
		}
	})
}

func TestPlatformDir(t *testing.T) {
	tests := []struct {
		goos, goarch, want string
	}{
		{"windows", "amd64", "win32-x64"},
		{"windows", "386", "win32-ia32"},
		{"windows", "arm64", "win32-arm64"},
		{"linux", "amd64", "linux-x64"},
	}
	for _, tt := range tests {
		if got := PlatformDir(tt.goos, tt.goarch); got != tt.want {
			t.Errorf("PlatformDir(%q, %q) = %q, want %q", tt.goos, tt.goarch, got, tt.want)
		}
	}
}

func TestBinaryPaths(t *testing.T) {
	base := filepath.Join("opt", "loopback")

	t.Run("default bin dir next to base", func(t *testing.T) {
		b := BinariesConfig{}
		want := filepath.Join(base, "bin", "win32-x64", ListerBinary)
		if got := b.ListerPath(base, "windows", "amd64"); got != want {
			t.Errorf("ListerPath() = %q, want %q", got, want)
		}
		want = filepath.Join(base, "bin", "win32-x64", CapturerBinary)
		if got := b.CapturerPath(base, "windows", "amd64"); got != want {
			t.Errorf("CapturerPath() = %q, want %q", got, want)
		}
	})

	t.Run("configured dir", func(t *testing.T) {
		b := BinariesConfig{Dir: "vendor-bin"}
		want := filepath.Join("vendor-bin", "win32-x64", ListerBinary)
		if got := b.ListerPath(base, "windows", "amd64"); got != want {
			t.Errorf("ListerPath() = %q, want %q", got, want)
		}
	})

	t.Run("explicit paths win", func(t *testing.T) {
		b := BinariesConfig{Dir: "ignored", Lister: "/x/list.exe", Capturer: "/x/cap.exe"}
		if got := b.ListerPath(base, "windows", "amd64"); got != "/x/list.exe" {
			t.Errorf("ListerPath() = %q", got)
		}
		if got := b.CapturerPath(base, "windows", "amd64"); got != "/x/cap.exe" {
			t.Errorf("CapturerPath() = %q", got)
		}
	})
}

func TestWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopback.yaml")
	if err := os.WriteFile(path, []byte("meter:\n  bars: 50\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, logging.Nop())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 16)
	go w.Run(ctx, func() { changed <- struct{}{} })

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("meter:\n  bars: 20\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for config file")
	}
}
