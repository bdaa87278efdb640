package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/micha/app-loopback/config"
	"github.com/micha/app-loopback/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Commands defer host.Close, so an interrupt still stops every capture.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	defer a.close()

	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// app carries the state shared by all commands.
type app struct {
	v        *viper.Viper
	cfgFile  string
	cfg      *config.Config
	log      *slog.Logger
	closeLog func() error
}

func newApp() *app {
	v := viper.New()
	config.SetDefaults(v)
	return &app{v: v, log: slog.Default()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "loopback",
		Short: "List application windows and capture their audio",
		Long: `loopback lists visible application windows with their process ids and
captures the audio a single application plays, using the ProcessList and
ApplicationLoopback helper programs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./loopback.yaml)")
	flags.String("log-level", logging.LevelInfo, "log level: DEBUG, INFO, WARN or ERROR")
	flags.String("bin-dir", "", "directory holding the <platform>-<arch> helper binaries")
	a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	a.v.BindPFlag("binaries.dir", flags.Lookup("bin-dir"))

	root.AddCommand(
		a.windowsCmd(),
		a.captureCmd(),
		a.meterCmd(),
		a.playCmd(),
		a.logsCmd(),
		a.devicesCmd(),
	)
	return root
}

// init loads the configuration and sets up logging.
func (a *app) init() error {
	if err := readConfig(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}

	log, closeLog, err := logging.Open(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	a.cfg = cfg
	a.log = log
	a.closeLog = closeLog
	return nil
}

func (a *app) close() {
	if a.closeLog != nil {
		a.closeLog()
	}
}
