package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkguldan/speakerfilter/internal/config"
)

func newConfigCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.ConfigFile != "" {
				fmt.Fprintf(out, "# loaded from %s\n", cfg.ConfigFile)
			}
			_, err = out.Write(data)
			return err
		},
	}
}
