package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkguldan/speakerfilter/internal/dataset"
	"github.com/mkguldan/speakerfilter/internal/workflow"
)

func newProbeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check that the speaker filter service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, *cfgFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			status, err := s.client.Probe(ctx)
			if err != nil {
				return describeErr(err, workflow.MsgConnectFailed)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Connected to %s: %s\n", s.client.BaseURL(), status.Status)
			if status.Message != "" {
				fmt.Fprintln(out, status.Message)
			}
			if status.RecordCount != nil {
				fmt.Fprintf(out, "Records: %d\n", *status.RecordCount)
			}
			if len(status.SampleColumns) > 0 {
				fmt.Fprintf(out, "Columns: %s\n", strings.Join(status.SampleColumns, ", "))
			}
			return nil
		},
	}
}

func newPreviewCmd(cfgFile *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "preview --file prospects.csv",
		Short: "Upload a CSV and show the service's summary of it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := dataset.Select(file)
			if err != nil {
				return describeErr(err, "Error previewing file")
			}

			s, err := openSession(cmd, *cfgFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			p, err := s.client.Preview(ctx, f)
			if err != nil {
				return describeErr(err, "Error previewing file")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", f.Name, f.SizeLabel())
			fmt.Fprintf(out, "Rows: %d  Columns: %d\n", p.RowCount, p.ColumnCount)
			fmt.Fprintf(out, "Columns: %s\n", strings.Join(p.Columns, ", "))
			if p.Message != "" {
				fmt.Fprintln(out, p.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Speaker prospect CSV file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
