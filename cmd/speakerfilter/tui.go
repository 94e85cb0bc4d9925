package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mkguldan/speakerfilter/internal/app"
	"github.com/mkguldan/speakerfilter/internal/notify"
	"github.com/mkguldan/speakerfilter/internal/workflow"
)

var errNoTerminal = errors.New("the interactive UI needs a terminal; use \"speakerfilter filter\" for scripted runs")

func newTUICmd(cfgFile *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, *cfgFile, file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file to select on start")
	return cmd
}

func runTUI(cmd *cobra.Command, cfgFile, file string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errNoTerminal
	}

	// The terminal belongs to the UI, so logs only go to --log-file.
	s, err := openSession(cmd, cfgFile, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	notes := notify.New(s.cfg.NotifyDuration)
	ctl := workflow.New(s.client, notes,
		workflow.WithLogger(s.log),
		workflow.WithExportDir(s.cfg.ExportDir),
	)
	if file != "" {
		if _, err := ctl.Select(file); err != nil {
			return describeErr(err, workflow.MsgFilterFailed)
		}
	}

	p := tea.NewProgram(app.New(ctx, s.client, ctl, notes),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
