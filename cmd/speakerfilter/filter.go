package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkguldan/speakerfilter/internal/backend"
	"github.com/mkguldan/speakerfilter/internal/notify"
	"github.com/mkguldan/speakerfilter/internal/results"
	"github.com/mkguldan/speakerfilter/internal/workflow"
)

type filterOptions struct {
	file    string
	event   string
	title   string
	exports []string
	out     string
	details bool
	json    bool
}

func newFilterCmd(cfgFile *string) *cobra.Command {
	var opts filterOptions
	cmd := &cobra.Command{
		Use:   "filter --file prospects.csv --event \"2511 Barclays\"",
		Short: "Filter a CSV headlessly and optionally export reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, *cfgFile, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "Speaker prospect CSV file")
	f.StringVarP(&opts.event, "event", "e", "", "Event name, e.g. \"2511 Barclays\"")
	f.StringVarP(&opts.title, "title", "t", "", "Event title")
	f.StringSliceVar(&opts.exports, "export", nil, `Export formats after filtering: csv, json, text or "all"`)
	f.StringVarP(&opts.out, "out", "o", "", "Directory for exported reports (overrides --export-dir)")
	f.BoolVar(&opts.details, "details", false, "Print ratings narratives for intended and endorsed speakers")
	f.BoolVar(&opts.json, "json", false, "Print the raw result as JSON instead of the listing")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func runFilter(cmd *cobra.Command, cfgFile string, opts filterOptions) error {
	formats, err := parseFormats(opts.exports)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, cfgFile, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	exportDir := s.cfg.ExportDir
	if opts.out != "" {
		exportDir = opts.out
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	ctl := workflow.New(s.client, &consoleNotifier{w: cmd.ErrOrStderr()},
		workflow.WithLogger(s.log),
		workflow.WithExportDir(exportDir),
	)
	if _, err := ctl.Select(opts.file); err != nil {
		return describeErr(err, workflow.MsgFilterFailed)
	}

	result, err := ctl.SubmitFilter(ctx, backend.Criteria{EventName: opts.event, EventTitle: opts.title})
	if err != nil {
		return describeErr(err, workflow.MsgFilterFailed)
	}

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		printResult(out, result, opts.details)
	}

	for _, format := range formats {
		path, err := ctl.Export(ctx, format)
		if err != nil {
			return describeErr(err, workflow.MsgExportFailed)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", path)
	}
	return nil
}

func parseFormats(values []string) ([]backend.Format, error) {
	var formats []backend.Format
	seen := make(map[backend.Format]bool)
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), "all") {
			return backend.Formats, nil
		}
		f, err := backend.ParseFormat(v)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	return formats, nil
}

// describeErr turns err into the operator-facing text while keeping it
// inspectable with errors.Is. The cause is only appended when the text is
// the generic fallback.
func describeErr(err error, generic string) error {
	_, msg := workflow.Describe(err, generic)
	if msg == generic {
		msg += ": " + err.Error()
	}
	return &operatorError{msg: msg, err: err}
}

type operatorError struct {
	msg string
	err error
}

func (e *operatorError) Error() string { return e.msg }
func (e *operatorError) Unwrap() error { return e.err }

func printResult(w io.Writer, r *backend.FilterResult, details bool) {
	event := r.EventName
	if r.EventTitle != "" {
		event += ": " + r.EventTitle
	}
	fmt.Fprintf(w, "Event: %s\n", event)
	fmt.Fprintln(w, strings.Join(results.SummaryLabels(r), "  "))

	for _, c := range results.Categories {
		fmt.Fprintf(w, "\n%s\n", results.TabLabel(r, c))
		if results.Len(r, c) == 0 {
			fmt.Fprintf(w, "  %s\n", results.EmptyMessage(c))
			continue
		}
		for pos, s := range results.View(r, c) {
			fmt.Fprintf(w, "  %s\n", results.Title(pos, s))
			for _, f := range results.Headline(s) {
				fmt.Fprintf(w, "     %s: %s\n", f.Label, f.Value)
			}
			for _, f := range results.Badges(s) {
				fmt.Fprintf(w, "     %s: %s\n", f.Label, f.Value)
			}
			if !details {
				continue
			}
			for _, f := range results.Details(s) {
				fmt.Fprintf(w, "     %s:\n", f.Label)
				for _, line := range strings.Split(f.Value, "\n") {
					fmt.Fprintf(w, "       %s\n", line)
				}
			}
		}
	}
}

// consoleNotifier prints success and info notifications. Warnings and errors
// are returned to cobra instead, so printing them would duplicate the message.
type consoleNotifier struct {
	w io.Writer
}

func (n *consoleNotifier) Push(sev notify.Severity, message string) notify.Event {
	if sev == notify.SeverityInfo || sev == notify.SeveritySuccess {
		fmt.Fprintln(n.w, message)
	}
	return notify.Event{Message: message, Severity: sev, CreatedAt: time.Now()}
}
