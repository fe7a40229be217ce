package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/connscan/app"
	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/config"
	"github.com/ludo-technologies/connscan/service"
)

// historyFlags locate the history database for trend and baseline
type historyFlags struct {
	configPath  string
	historyPath string
}

func (f *historyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&f.historyPath, "history", "", "Snapshot history database")
}

func (f *historyFlags) trendUseCase(cmd *cobra.Command) (*app.TrendUseCase, *config.Config, error) {
	loader := service.NewConfigurationLoader()
	cfg, err := loader.LoadConfig(f.configPath, ".", "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("history") {
		cfg.Trend.HistoryPath = f.historyPath
	}
	if cfg.Trend.HistoryPath == "" {
		return nil, nil, fmt.Errorf("no history database configured")
	}
	return app.NewTrendUseCaseFromConfig(cfg, logger), cfg, nil
}

func trendCmd() *cobra.Command {
	flags := &historyFlags{}
	var format string

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show quality trend and baseline comparison",
		Long: `Show how the quality score and violation count moved over the recorded
history, and how the latest snapshot compares to the baseline.

Examples:
  connscan trend
  connscan trend --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, cfg, err := flags.trendUseCase(cmd)
			if err != nil {
				return err
			}
			report, err := uc.Report(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("format") {
				format = cfg.Output.Format
			}
			return service.NewOutputFormatter().WriteTrend(report, domain.OutputFormat(format), cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")
	return cmd
}

func baselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage the quality baseline",
	}
	cmd.AddCommand(baselineSetCmd())
	return cmd
}

func baselineSetCmd() *cobra.Command {
	flags := &historyFlags{}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Mark the latest snapshot as the baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, _, err := flags.trendUseCase(cmd)
			if err != nil {
				return err
			}
			snap, err := uc.SetBaseline(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Baseline set: quality %.3f, %d violations (snapshot %s)\n",
				snap.QualityScore, snap.TotalViolations, snap.ID)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
