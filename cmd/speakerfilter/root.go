package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkguldan/speakerfilter/internal/backend"
	"github.com/mkguldan/speakerfilter/internal/config"
)

var (
	// Set at build time with -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Execute runs the root command and exits non-zero on failure. Cobra has
// already printed the error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "speakerfilter",
		Short: "Categorize speaker prospects for an event.",
		Long: `speakerfilter sends a speaker prospect CSV to the speaker filter service
and shows who is confirmed, intended or endorsed for an event.

Without a subcommand it starts the interactive terminal UI. Use the filter
command for scripted runs and exports.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, cfgFile, "")
		},
	}
	root.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Configuration file path (default is ./speakerfilter.yaml or ~/.config/speakerfilter/speakerfilter.yaml)")
	pf.String("base-url", "", "Speaker filter service URL (default "+backend.DefaultBaseURL+")")
	pf.String("probe-path", "", "Path of the connection check endpoint (default "+backend.DefaultProbePath+")")
	pf.Duration("request-timeout", 0, "Timeout for filter, preview and export requests (default 10m)")
	pf.Duration("probe-timeout", 0, "Timeout for the connection check (default 10s)")
	pf.Duration("notify-duration", 0, "How long notifications stay visible (default 6s)")
	pf.String("export-dir", "", "Directory exported reports are saved to (default .)")
	pf.String("log-file", "", "Write logs to this file")
	pf.BoolP("verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newTUICmd(&cfgFile),
		newFilterCmd(&cfgFile),
		newProbeCmd(&cfgFile),
		newPreviewCmd(&cfgFile),
		newConfigCmd(&cfgFile),
	)
	return root
}

// session is what every command builds from the merged configuration.
type session struct {
	cfg    config.Config
	log    *slog.Logger
	client *backend.Client
	closer io.Closer
}

// openSession loads configuration and builds the logger and service client.
// logFallback receives logs when no log file is configured; nil discards them.
func openSession(cmd *cobra.Command, cfgFile string, logFallback io.Writer) (*session, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, closer, err := cfg.Logger(logFallback)
	if err != nil {
		return nil, err
	}
	client, err := backend.New(cfg.BaseURL,
		backend.WithProbePath(cfg.ProbePath),
		backend.WithTimeouts(cfg.ProbeTimeout, cfg.RequestTimeout),
		backend.WithLogger(log),
	)
	if err != nil {
		closer.Close()
		return nil, err
	}
	log.Debug("configuration loaded", "file", cfg.ConfigFile, "base_url", cfg.BaseURL)
	return &session{cfg: cfg, log: log, client: client, closer: closer}, nil
}

func (s *session) Close() error {
	return s.closer.Close()
}

// signalContext is cancelled on interrupt so in-flight requests abort.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
