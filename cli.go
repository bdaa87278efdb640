package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/micha/app-loopback/capture"
	"github.com/micha/app-loopback/config"
	"github.com/micha/app-loopback/loopback"
	"github.com/micha/app-loopback/meter"
	"github.com/micha/app-loopback/monitor"
	"github.com/micha/app-loopback/playback"
	"github.com/micha/app-loopback/window"
)

func (a *app) openHost(ctx context.Context) (*loopback.Host, error) {
	lister, capturer := binaryPaths(a.cfg)
	return loopback.New(ctx, loopback.Config{
		ListerPath:     lister,
		CapturerPath:   capturer,
		Platform:       platformRequirement(a.cfg),
		ReadBufferSize: a.cfg.Capture.ReadBufferSize,
		LogDir:         a.cfg.Capture.LogDir,
		Logger:         a.log,
	})
}

func (a *app) openPlayer() (*playback.Player, error) {
	return playback.NewPlayer(playback.Config{
		SampleRate: a.cfg.Playback.SampleRate,
		Channels:   a.cfg.Playback.Channels,
		Device:     a.cfg.Playback.Device,
		BufferMs:   a.cfg.Playback.BufferMs,
	}, a.log)
}

// resolveTarget picks the process to capture from the positional argument or
// from a window title. The returned label is shown to the user.
func resolveTarget(ctx context.Context, host *loopback.Host, args []string, title string) (processID, label string, err error) {
	if len(args) == 1 {
		return args[0], "process " + args[0], nil
	}
	if title == "" {
		return "", "", errors.New("give a process id or --title")
	}

	records, err := host.ListWindows(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to list windows: %w", err)
	}
	rec, ok := window.Find(records, title)
	if !ok {
		return "", "", fmt.Errorf("no window title contains %q", title)
	}
	return rec.ProcessID, rec.Title, nil
}

// waitCapture blocks until ctx is done or the capture ends by itself.
func waitCapture(ctx context.Context, processID string, exited <-chan error) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-exited:
		if err != nil {
			return fmt.Errorf("capture for process %s ended: %w", processID, err)
		}
		return nil
	}
}

func (a *app) windowsCmd() *cobra.Command {
	var (
		asJSON bool
		filter string
	)

	cmd := &cobra.Command{
		Use:   "windows",
		Short: "List visible windows and their process ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			host, err := a.openHost(ctx)
			if err != nil {
				return err
			}
			defer host.Close()

			records, err := host.ListWindows(ctx)
			if err != nil {
				return fmt.Errorf("failed to list windows: %w", err)
			}
			if filter != "" {
				records = window.Filter(records, filter)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PID\tTITLE")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\n", r.ProcessID, r.Title)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	cmd.Flags().StringVar(&filter, "filter", "", "only show windows whose title contains this text")
	return cmd
}

func (a *app) captureCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "capture <processId>",
		Short: "Write a process's audio to stdout as raw s16le PCM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) && !force {
				return errors.New("refusing to write raw audio to a terminal; redirect stdout or pass --force")
			}

			ctx := cmd.Context()
			host, err := a.openHost(ctx)
			if err != nil {
				return err
			}
			defer host.Close()

			out := cmd.OutOrStdout()
			exited := make(chan error, 1)
			writeErr := make(chan error, 1)

			id, err := host.StartCapture(args[0], capture.Options{
				OnData: func(chunk []byte) {
					if _, err := out.Write(chunk); err != nil {
						select {
						case writeErr <- err:
						default:
						}
					}
				},
				OnExit: func(err error) { exited <- err },
			})
			if err != nil {
				return err
			}
			a.log.Info("capturing", "processId", id)

			select {
			case <-ctx.Done():
				return nil
			case err := <-writeErr:
				return fmt.Errorf("failed to write audio: %w", err)
			case err := <-exited:
				if err != nil {
					return fmt.Errorf("capture for process %s ended: %w", id, err)
				}
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "write to stdout even if it is a terminal")
	return cmd
}

func (a *app) meterCmd() *cobra.Command {
	var (
		title string
		play  bool
	)

	cmd := &cobra.Command{
		Use:   "meter [processId]",
		Short: "Show live per-channel levels of a process's audio",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			host, err := a.openHost(ctx)
			if err != nil {
				return err
			}
			defer host.Close()

			target, label, err := resolveTarget(ctx, host, args, title)
			if err != nil {
				return err
			}

			var player *playback.Player
			if play {
				player, err = a.openPlayer()
				if err != nil {
					return err
				}
				defer player.Close()
				if err := player.Start(); err != nil {
					return err
				}
			}

			analyzer := meter.NewAnalyzer(a.cfg.Meter.Channels, a.cfg.Meter.WindowFrames)
			model := meter.NewModel(label, analyzer, meterBar(&a.cfg.Meter), a.cfg.Meter.RefreshInterval())
			program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))

			if _, err := host.StartCapture(target, capture.Options{
				OnData: func(chunk []byte) {
					analyzer.Write(chunk)
					if player != nil {
						player.Write(chunk)
					}
				},
				OnExit: func(err error) { program.Send(meter.CaptureExited(err)) },
			}); err != nil {
				return err
			}

			go a.watchMeterConfig(ctx, program)

			final, err := program.Run()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("meter failed: %w", err)
			}
			if m, ok := final.(meter.Model); ok {
				if ended, exitErr := m.CaptureEnded(); ended && exitErr != nil {
					return fmt.Errorf("capture for process %s ended: %w", target, exitErr)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "capture the first window whose title contains this text")
	cmd.Flags().BoolVar(&play, "play", false, "also play the captured audio")
	return cmd
}

// watchMeterConfig reloads the meter section when the config file changes.
func (a *app) watchMeterConfig(ctx context.Context, program *tea.Program) {
	path := a.v.ConfigFileUsed()
	if path == "" {
		return
	}

	w, err := config.NewWatcher(path, a.log)
	if err != nil {
		a.log.Warn("config reload disabled", "error", err)
		return
	}
	w.Run(ctx, func() {
		if err := a.v.ReadInConfig(); err != nil {
			a.log.Warn("failed to reload config", "error", err)
			return
		}
		cfg, err := config.Load(a.v)
		if err != nil {
			a.log.Warn("ignoring invalid config", "error", err)
			return
		}
		program.Send(meter.SetBar(meterBar(&cfg.Meter)))
	})
}

func (a *app) playCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "play [processId]",
		Short: "Play a process's audio through an output device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			host, err := a.openHost(ctx)
			if err != nil {
				return err
			}
			defer host.Close()

			target, label, err := resolveTarget(ctx, host, args, title)
			if err != nil {
				return err
			}

			player, err := a.openPlayer()
			if err != nil {
				return err
			}
			defer player.Close()
			if err := player.Start(); err != nil {
				return err
			}

			exited := make(chan error, 1)
			if _, err := host.StartCapture(target, capture.Options{
				OnData: func(chunk []byte) { player.Write(chunk) },
				OnExit: func(err error) { exited <- err },
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Playing %s. Press Ctrl+C to stop.\n", label)

			return waitCapture(ctx, target, exited)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "play the first window whose title contains this text")
	return cmd
}

func (a *app) logsCmd() *cobra.Command {
	var fromStart bool

	cmd := &cobra.Command{
		Use:   "logs <processId>",
		Short: "Follow the log a capture program writes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Capture.LogDir == "" {
				return errors.New("capture.log_dir is not configured")
			}

			path, err := monitor.LogPath(a.cfg.Capture.LogDir, args[0])
			if err != nil {
				return err
			}
			mon, err := monitor.NewMonitor(path, fromStart)
			if err != nil {
				return err
			}
			defer mon.Stop()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-mon.Lines():
					if !ok {
						return nil
					}
					if line.Err != nil {
						return fmt.Errorf("failed to follow %s: %w", mon.Path(), line.Err)
					}
					fmt.Fprintln(out, line.Text)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&fromStart, "from-start", false, "print the existing log before following it")
	return cmd
}

func (a *app) devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio playback devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprint(out, playback.HelpText())

			devices, err := playback.ListDevices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintln(out, "No playback devices found.")
				return nil
			}
			for _, d := range devices {
				marker := " "
				if d.IsDefault {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, d.Name)
			}
			return nil
		},
	}
}
