package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/config"
)

// ErrNoSourceFiles is returned when path resolution finds nothing to analyze
var ErrNoSourceFiles = errors.New("no Python or C source files found in the specified paths")

// AnalyzeConfig holds configuration for the analyze use case
type AnalyzeConfig struct {
	// File options
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// RecordHistory appends the snapshot of a completed run to the history store
	RecordHistory bool

	// MetricsFile receives prometheus gauges when non-empty
	MetricsFile string
}

// AnalyzeConfigFrom derives use case settings from a loaded configuration
func AnalyzeConfigFrom(cfg *config.Config) AnalyzeConfig {
	return AnalyzeConfig{
		Recursive:       cfg.Analysis.Recursive,
		IncludePatterns: cfg.Analysis.IncludePatterns,
		ExcludePatterns: cfg.Analysis.ExcludePatterns,
		RecordHistory:   cfg.Trend.HistoryPath != "",
		MetricsFile:     cfg.Output.MetricsFile,
	}
}

// MetricsExportFunc writes a snapshot's gauges to a file
type MetricsExportFunc func(path string, snap domain.MetricsSnapshot) error

// AnalyzeUseCase resolves files, runs the connascence service and records the
// resulting snapshot
type AnalyzeUseCase struct {
	service       domain.ConnascenceService
	files         domain.FileCollector
	trend         *TrendUseCase
	exportMetrics MetricsExportFunc
	logger        *slog.Logger
}

// NewAnalyzeUseCase creates a new analyze use case
func NewAnalyzeUseCase(service domain.ConnascenceService, files domain.FileCollector) *AnalyzeUseCase {
	if files == nil {
		files = NewFileHelper()
	}
	return &AnalyzeUseCase{
		service: service,
		files:   files,
		logger:  slog.Default(),
	}
}

// Execute performs the analysis. History and metrics failures are reported
// but never discard the analysis result.
func (uc *AnalyzeUseCase) Execute(ctx context.Context, cfg AnalyzeConfig, paths []string) (*domain.AnalyzeResponse, error) {
	files, err := uc.files.CollectSourceFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to collect source files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoSourceFiles
	}
	uc.logger.Debug("collected source files", "count", len(files))

	resp, err := uc.service.Analyze(ctx, domain.AnalyzeRequest{Paths: files})
	if err != nil {
		return nil, fmt.Errorf("connascence analysis failed: %w", err)
	}

	if cfg.RecordHistory && uc.trend != nil {
		switch {
		case resp.Cancelled:
			uc.logger.Info("snapshot not recorded", "reason", "analysis cancelled")
		default:
			if err := uc.trend.Record(ctx, resp.Snapshot); err != nil {
				uc.logger.Warn("failed to record snapshot", "path", uc.trend.HistoryPath(), "error", err)
			}
		}
	}

	if cfg.MetricsFile != "" && uc.exportMetrics != nil {
		if err := uc.exportMetrics(cfg.MetricsFile, resp.Snapshot); err != nil {
			return resp, fmt.Errorf("failed to export metrics: %w", err)
		}
		uc.logger.Debug("metrics written", "path", cfg.MetricsFile)
	}

	return resp, nil
}

// AnalyzeUseCaseBuilder builds an AnalyzeUseCase
type AnalyzeUseCaseBuilder struct {
	service       domain.ConnascenceService
	files         domain.FileCollector
	trend         *TrendUseCase
	exportMetrics MetricsExportFunc
	logger        *slog.Logger
}

// NewAnalyzeUseCaseBuilder creates a new builder
func NewAnalyzeUseCaseBuilder() *AnalyzeUseCaseBuilder {
	return &AnalyzeUseCaseBuilder{}
}

// WithService sets the connascence service
func (b *AnalyzeUseCaseBuilder) WithService(s domain.ConnascenceService) *AnalyzeUseCaseBuilder {
	b.service = s
	return b
}

// WithFileCollector sets the file collector
func (b *AnalyzeUseCaseBuilder) WithFileCollector(fc domain.FileCollector) *AnalyzeUseCaseBuilder {
	b.files = fc
	return b
}

// WithTrend sets the history the snapshot is recorded to
func (b *AnalyzeUseCaseBuilder) WithTrend(t *TrendUseCase) *AnalyzeUseCaseBuilder {
	b.trend = t
	return b
}

// WithMetricsExporter sets the metrics textfile writer
func (b *AnalyzeUseCaseBuilder) WithMetricsExporter(fn MetricsExportFunc) *AnalyzeUseCaseBuilder {
	b.exportMetrics = fn
	return b
}

// WithLogger sets the logger
func (b *AnalyzeUseCaseBuilder) WithLogger(l *slog.Logger) *AnalyzeUseCaseBuilder {
	b.logger = l
	return b
}

// Build creates the AnalyzeUseCase
func (b *AnalyzeUseCaseBuilder) Build() (*AnalyzeUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("connascence service is required")
	}
	uc := NewAnalyzeUseCase(b.service, b.files)
	uc.trend = b.trend
	uc.exportMetrics = b.exportMetrics
	if b.logger != nil {
		uc.logger = b.logger
	}
	return uc, nil
}
