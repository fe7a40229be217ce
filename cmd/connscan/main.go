package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/version"
)

// CheckExitError carries a process exit code out of a command
type CheckExitError struct {
	Code    int
	Message string
}

func (e *CheckExitError) Error() string {
	return e.Message
}

// logging flags shared by every command
var (
	verbose bool
	quiet   bool
)

// logger is configured before any command runs
var logger = slog.Default()

// newLogger builds the stderr text logger for the given verbosity
func newLogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "connscan",
		Short: "connscan - connascence analyzer for Python and C",
		Long: `connscan detects connascence (coupling) in Python and C code: magic literals,
long positional parameter lists, god objects, duplicated algorithms and
NASA/JPL safety rule violations. Results are scored and tracked over time.`,
		Version:       version.Get().String(),
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(cmd.ErrOrStderr(), verbose, quiet)
			slog.SetDefault(logger)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(trendCmd())
	rootCmd.AddCommand(baselineCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode maps a command error to the process exit code, printing any message
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return domain.ExitClean
	}
	var exitErr *CheckExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintf(stderr, "Error: %s\n", exitErr.Message)
		}
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return domain.ExitFailure
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			if full, _ := cmd.Flags().GetBool("full"); full {
				fmt.Fprintln(cmd.OutOrStdout(), info.Full())
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connscan version %s\n", info)
		},
	}

	cmd.Flags().Bool("full", false, "Show detailed version information")
	return cmd
}
