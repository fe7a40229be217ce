package domain

import (
	"context"
	"io"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// ParseOutputFormat maps a format name to an OutputFormat
func ParseOutputFormat(s string) (OutputFormat, bool) {
	switch OutputFormat(s) {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return OutputFormat(s), true
	}
	return "", false
}

// AnalyzeRequest represents a request for connascence analysis
type AnalyzeRequest struct {
	// Paths are the source files to analyze, already resolved and filtered
	Paths []string
}

// AnalyzeResponse is the complete result of one analysis run
type AnalyzeResponse struct {
	Violations     []Violation        `json:"violations" yaml:"violations"`
	Clusters       []DuplicateCluster `json:"clusters" yaml:"clusters"`
	ParseErrors    []ParseError       `json:"parse_errors,omitempty" yaml:"parse_errors,omitempty"`
	DetectorErrors []DetectorError    `json:"detector_errors,omitempty" yaml:"detector_errors,omitempty"`
	FilesAnalyzed  int                `json:"files_analyzed" yaml:"files_analyzed"`
	FunctionCount  int                `json:"function_count" yaml:"function_count"`
	Waived         int                `json:"waived,omitempty" yaml:"waived,omitempty"`
	Cancelled      bool               `json:"cancelled" yaml:"cancelled"`
	Snapshot       MetricsSnapshot    `json:"metrics" yaml:"metrics"`
	Summary        Summary            `json:"summary" yaml:"summary"`

	// Metadata
	Profile     string `json:"profile" yaml:"profile"`
	GeneratedAt string `json:"generated_at" yaml:"generated_at"`
	DurationMs  int64  `json:"duration_ms" yaml:"duration_ms"`
	Version     string `json:"version" yaml:"version"`
}

// HasErrors reports whether any file or detector failed during the run
func (r *AnalyzeResponse) HasErrors() bool {
	return len(r.ParseErrors) > 0 || len(r.DetectorErrors) > 0
}

// CountAtLeast returns how many violations are at least as severe as threshold
func (r *AnalyzeResponse) CountAtLeast(threshold Severity) int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity.AtLeast(threshold) {
			n++
		}
	}
	return n
}

// ConnascenceService defines the core business logic for connascence analysis
type ConnascenceService interface {
	// Analyze runs every enabled detector over the request paths
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error)
}

// FileCollector discovers analyzable source files
type FileCollector interface {
	CollectSourceFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error)
	ReadFile(path string) ([]byte, error)
	IsSourceFile(path string) bool
	FileExists(path string) (bool, error)
}

// OutputFormatter defines the interface for formatting analysis results
type OutputFormatter interface {
	Write(response *AnalyzeResponse, format OutputFormat, writer io.Writer) error
}

// ExecutableTask is a unit of work for the parallel executor
type ExecutableTask interface {
	Name() string
	Execute(ctx context.Context) (any, error)
	IsEnabled() bool
}

// ParallelExecutor runs tasks concurrently
type ParallelExecutor interface {
	Execute(ctx context.Context, tasks []ExecutableTask) error
}

// ProgressManager creates progress trackers for long running work
type ProgressManager interface {
	StartTask(description string, total int) TaskProgress
	IsInteractive() bool
	Close()
}

// TaskProgress tracks the progress of one task
type TaskProgress interface {
	Increment(n int)
	Describe(description string)
	Complete()
}
