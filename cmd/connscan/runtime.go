package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/connscan/app"
	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/config"
	"github.com/ludo-technologies/connscan/service"
)

// analysisFlags are the configuration flags shared by analyze and check.
// Only flags the user actually set override the loaded configuration.
type analysisFlags struct {
	configPath    string
	policy        string
	format        string
	workers       int
	recursive     bool
	include       []string
	exclude       []string
	maxParams     int
	maxMethods    int
	safety        bool
	meceThreshold float64
	historyPath   string
	waivers       string
	metricsFile   string
	noProgress    bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to config file")
	fs.StringVarP(&f.policy, "policy", "p", "", "Profile: default, nasa_jpl_pot10, strict-core, lenient")
	fs.StringVarP(&f.format, "format", "f", "text", "Output format: text, json, yaml")
	fs.IntVarP(&f.workers, "workers", "j", 0, "Files analyzed in parallel (0 = one per CPU)")
	fs.BoolVarP(&f.recursive, "recursive", "r", true, "Walk directories recursively")
	fs.StringSliceVar(&f.include, "include", nil, "Include globs (replace the configured ones)")
	fs.StringSliceVar(&f.exclude, "exclude", nil, "Exclude globs (replace the configured ones)")
	fs.IntVar(&f.maxParams, "max-params", 0, "Positional parameter threshold")
	fs.IntVar(&f.maxMethods, "max-methods", 0, "God object method threshold")
	fs.BoolVar(&f.safety, "safety", false, "Enable NASA/JPL safety rules")
	fs.Float64Var(&f.meceThreshold, "mece-threshold", 0, "Duplicate algorithm similarity threshold in (0, 1]")
	fs.StringVar(&f.historyPath, "history", "", "Snapshot history database")
	fs.StringVar(&f.waivers, "waivers", "", "Waiver file")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "Write prometheus gauges to this textfile")
	fs.BoolVar(&f.noProgress, "no-progress", false, "Disable the progress bar")
}

// overrides converts the flags the user set into config overrides
func (f *analysisFlags) overrides(cmd *cobra.Command) service.ConfigOverrides {
	changed := cmd.Flags().Changed
	var o service.ConfigOverrides
	if changed("format") {
		o.OutputFormat = &f.format
	}
	if changed("workers") {
		o.Workers = &f.workers
	}
	if changed("recursive") {
		o.Recursive = &f.recursive
	}
	if changed("max-params") {
		o.MaxParams = &f.maxParams
	}
	if changed("max-methods") {
		o.MaxMethods = &f.maxMethods
	}
	if changed("safety") {
		o.EnableSafety = &f.safety
	}
	if changed("mece-threshold") {
		o.MECEThreshold = &f.meceThreshold
	}
	if changed("history") {
		o.HistoryPath = &f.historyPath
	}
	if changed("waivers") {
		o.Waivers = &f.waivers
	}
	if changed("metrics-file") {
		o.MetricsFile = &f.metricsFile
	}
	o.IncludePatterns = f.include
	o.ExcludePatterns = f.exclude
	return o
}

// loadConfig resolves config for the first target and applies the flags
func (f *analysisFlags) loadConfig(cmd *cobra.Command, target string, extra func(*service.ConfigOverrides)) (*config.Config, error) {
	loader := service.NewConfigurationLoader()
	cfg, err := loader.LoadConfig(f.configPath, target, f.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	o := f.overrides(cmd)
	if extra != nil {
		extra(&o)
	}
	merged, err := loader.MergeConfig(cfg, o)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Debug("configuration loaded", "policy", merged.Policy, "format", merged.Output.Format)
	return merged, nil
}

// projectDir is the directory relative waiver paths resolve against
func projectDir(target string) string {
	info, err := os.Stat(target)
	if err == nil && !info.IsDir() {
		return filepath.Dir(target)
	}
	return target
}

// runAnalysis wires the service and use case for cfg and analyzes paths
func runAnalysis(ctx context.Context, cfg *config.Config, paths []string, recordHistory, showProgress bool) (*domain.AnalyzeResponse, error) {
	loader := service.NewConfigurationLoader()
	opts, err := loader.ServiceOptions(cfg, projectDir(paths[0]))
	if err != nil {
		return nil, err
	}

	pm := service.NewProgressManager(showProgress && cfg.Output.Format == string(domain.OutputFormatText))
	defer pm.Close()

	files := app.NewFileHelper()
	files.RespectGitignore = cfg.Analysis.RespectGitignore

	uc, err := app.NewAnalyzeUseCaseBuilder().
		WithService(service.NewConnascenceServiceWithProgress(opts, pm, logger)).
		WithFileCollector(files).
		WithTrend(app.NewTrendUseCaseFromConfig(cfg, logger)).
		WithMetricsExporter(service.ExportSnapshot).
		WithLogger(logger).
		Build()
	if err != nil {
		return nil, err
	}

	ac := app.AnalyzeConfigFrom(cfg)
	ac.RecordHistory = ac.RecordHistory && recordHistory
	return uc.Execute(ctx, ac, paths)
}
