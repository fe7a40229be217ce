package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/connscan/app"
	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/service"
)

func checkCmd() *cobra.Command {
	flags := &analysisFlags{}
	var failOn string

	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Quality gate for CI/CD pipelines",
		Long: `Analyze the given paths and fail when a violation reaches the failure
threshold or a violation budget is exceeded. No snapshot is recorded.

Exit codes:
  0 - All checks pass
  1 - Violations at or above the threshold, or a budget exceeded
  2 - Analysis error (no files, invalid configuration, unreadable path)

Examples:
  connscan check src/
  connscan check --fail-on medium src/
  connscan check --policy strict-core --format json src/`,
		RunE:          func(cmd *cobra.Command, args []string) error { return runCheck(cmd, args, flags, failOn) },
		SilenceUsage:  true, // Don't print usage on errors (we handle our own output)
		SilenceErrors: true, // Don't print error messages (we handle our own output)
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Lowest failing severity: low, medium, high, critical")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string, flags *analysisFlags, failOn string) error {
	if len(args) == 0 {
		return &CheckExitError{Code: domain.ExitFailure, Message: "no paths specified"}
	}

	cfg, err := flags.loadConfig(cmd, args[0], func(o *service.ConfigOverrides) {
		if cmd.Flags().Changed("fail-on") {
			o.FailOn = &failOn
		}
	})
	if err != nil {
		return &CheckExitError{Code: domain.ExitFailure, Message: err.Error()}
	}

	budgets, err := service.NewConfigurationLoader().Budgets(cfg)
	if err != nil {
		return &CheckExitError{Code: domain.ExitFailure, Message: fmt.Sprintf("invalid budgets: %v", err)}
	}

	resp, err := runAnalysis(cmd.Context(), cfg, args, false, !flags.noProgress && !quiet)
	if err != nil {
		return &CheckExitError{Code: domain.ExitFailure, Message: err.Error()}
	}
	if resp.Cancelled {
		return &CheckExitError{Code: domain.ExitFailure, Message: "analysis cancelled"}
	}

	result := app.EvaluateCheck(resp, app.CheckConfig{FailOn: cfg.FailOnSeverity(), Budgets: budgets})
	format := domain.OutputFormat(cfg.Output.Format)
	if err := service.NewOutputFormatter().WriteCheck(result, format, cmd.OutOrStdout()); err != nil {
		return &CheckExitError{Code: domain.ExitFailure, Message: fmt.Sprintf("failed to write result: %v", err)}
	}

	if !result.Passed {
		return &CheckExitError{Code: result.ExitCode}
	}
	return nil
}
