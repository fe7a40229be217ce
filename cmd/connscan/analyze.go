package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/service"
)

func analyzeCmd() *cobra.Command {
	flags := &analysisFlags{}
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "analyze [path...]",
		Short: "Analyze Python and C files for connascence",
		Long: `Analyze Python and C files for connascence violations, duplicate
algorithms and (optionally) NASA/JPL safety rules, then score the result.

Each completed run appends a metrics snapshot to the history database
unless --no-history is given.

Examples:
  connscan analyze src/
  connscan analyze --policy nasa_jpl_pot10 firmware/
  connscan analyze --format json src/ > report.json
  connscan analyze --metrics-file /var/lib/node_exporter/connscan.prom .`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("no paths specified")
			}

			cfg, err := flags.loadConfig(cmd, args[0], nil)
			if err != nil {
				return err
			}

			resp, err := runAnalysis(cmd.Context(), cfg, args, !noHistory, !flags.noProgress && !quiet)
			if err != nil {
				return err
			}

			formatter := service.NewOutputFormatter()
			formatter.ShowDetails = cfg.Output.ShowDetails
			return formatter.Write(resp, domain.OutputFormat(cfg.Output.Format), cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record a snapshot")
	return cmd
}
