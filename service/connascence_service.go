package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/analyzer"
	"github.com/ludo-technologies/connscan/internal/parser"
	"github.com/ludo-technologies/connscan/internal/policy"
	"github.com/ludo-technologies/connscan/internal/scoring"
	"github.com/ludo-technologies/connscan/internal/version"
)

// ServiceOptions configures one ConnascenceServiceImpl
type ServiceOptions struct {
	// Profile is reported back in the response metadata
	Profile string

	Detectors    *analyzer.Options
	MECEEnabled  bool
	MECE         analyzer.MECEOptions
	EmitClusters bool
	Scoring      scoring.Config

	// Waivers may be nil
	Waivers *policy.WaiverSet

	// MaxConcurrency is the number of files analyzed at once (0 = one per CPU)
	MaxConcurrency int
}

// DefaultServiceOptions returns built-in settings with clustering enabled
func DefaultServiceOptions() ServiceOptions {
	return ServiceOptions{
		Profile:      "default",
		Detectors:    analyzer.DefaultOptions(),
		MECEEnabled:  true,
		MECE:         analyzer.DefaultMECEOptions(),
		EmitClusters: true,
		Scoring:      scoring.DefaultConfig(),
	}
}

// ConnascenceServiceImpl implements domain.ConnascenceService. One instance
// holds all the state of a run; nothing is shared between instances.
type ConnascenceServiceImpl struct {
	opts     ServiceOptions
	progress domain.ProgressManager
	logger   *slog.Logger
	scorer   *scoring.Scorer
	readFile func(string) ([]byte, error)
}

// NewConnascenceService creates a new connascence service
func NewConnascenceService(opts ServiceOptions, logger *slog.Logger) *ConnascenceServiceImpl {
	if opts.Detectors == nil {
		opts.Detectors = analyzer.DefaultOptions()
	}
	if opts.MECE.Threshold == 0 {
		opts.MECE = analyzer.DefaultMECEOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnascenceServiceImpl{
		opts:     opts,
		logger:   logger,
		scorer:   scoring.NewScorer(opts.Scoring),
		readFile: os.ReadFile,
	}
}

// NewConnascenceServiceWithProgress creates a connascence service with progress reporting
func NewConnascenceServiceWithProgress(opts ServiceOptions, pm domain.ProgressManager, logger *slog.Logger) *ConnascenceServiceImpl {
	s := NewConnascenceService(opts, logger)
	s.progress = pm
	return s
}

// fileOutcome is what one per-file task leaves behind. Each task writes only
// its own slot, so no locking is needed.
type fileOutcome struct {
	started   bool
	result    *analyzer.FileResult
	parseErr  *domain.ParseError
	invariant *domain.InvariantViolation
}

// fileTask adapts one file to the parallel executor
type fileTask struct {
	path string
	run  func(ctx context.Context) error
}

func (t *fileTask) Name() string                            { return t.path }
func (t *fileTask) IsEnabled() bool                         { return true }
func (t *fileTask) Execute(ctx context.Context) (any, error) { return nil, t.run(ctx) }

// Analyze runs every enabled detector over the request paths, clusters
// duplicate functions across files, then deduplicates, waives, sorts and
// scores the violations.
func (s *ConnascenceServiceImpl) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	start := time.Now()
	outcomes := make([]fileOutcome, len(req.Paths))

	tasks := make([]domain.ExecutableTask, len(req.Paths))
	for i, path := range req.Paths {
		out := &outcomes[i]
		tasks[i] = &fileTask{
			path: path,
			run: func(ctx context.Context) error {
				s.analyzeFile(ctx, path, out)
				return nil
			},
		}
	}

	executor := NewParallelExecutorWithProgress(s.opts.MaxConcurrency, s.progress)
	// Cancellation is reported through Cancelled, not as a failure
	if err := executor.Execute(ctx, tasks); err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	// Broken caller contracts must fail loudly on the calling goroutine
	for i := range outcomes {
		if iv := outcomes[i].invariant; iv != nil {
			panic(*iv)
		}
	}

	resp := &domain.AnalyzeResponse{
		Violations:     make([]domain.Violation, 0),
		Clusters:       make([]domain.DuplicateCluster, 0),
		ParseErrors:    make([]domain.ParseError, 0),
		DetectorErrors: make([]domain.DetectorError, 0),
		Profile:        s.opts.Profile,
		Version:        version.Get().String(),
	}

	var (
		all       []domain.Violation
		functions []analyzer.FunctionFingerprint
		skipped   int
	)
	for i := range outcomes {
		out := &outcomes[i]
		switch {
		case !out.started:
			skipped++
		case out.parseErr != nil:
			s.logger.Warn("skipping file", "file", out.parseErr.FilePath, "error", out.parseErr.Message)
			resp.ParseErrors = append(resp.ParseErrors, *out.parseErr)
		case out.result != nil:
			resp.FilesAnalyzed++
			all = append(all, out.result.Violations...)
			functions = append(functions, out.result.Functions...)
			for _, de := range out.result.DetectorErrors {
				s.logger.Warn("detector failed", "file", de.FilePath, "detector", de.Detector, "error", de.Message)
				resp.DetectorErrors = append(resp.DetectorErrors, de)
			}
		}
	}

	if ctx.Err() != nil {
		resp.Cancelled = true
		s.logger.Info("analysis cancelled", "processed", len(req.Paths)-skipped, "total", len(req.Paths))
	}

	resp.FunctionCount = len(functions)
	if s.opts.MECEEnabled && len(functions) > 0 {
		resp.Clusters = analyzer.NewMECEClusterer(s.opts.MECE).Cluster(functions)
		if s.opts.EmitClusters {
			all = append(all, analyzer.ClusterViolations(resp.Clusters)...)
		}
	}

	kept, waived := s.opts.Waivers.Apply(dedupeViolations(all))
	sortViolations(kept)
	resp.Violations = kept
	resp.Waived = waived

	resp.Snapshot = s.scorer.Score(scoring.Input{
		Violations:    resp.Violations,
		Clusters:      resp.Clusters,
		FilesAnalyzed: resp.FilesAnalyzed,
	})
	resp.Summary = resp.Snapshot.Summary()
	resp.GeneratedAt = resp.Snapshot.Timestamp.Format(time.RFC3339)
	resp.DurationMs = time.Since(start).Milliseconds()

	s.logger.Debug("analysis complete",
		"files", resp.FilesAnalyzed,
		"violations", len(resp.Violations),
		"clusters", len(resp.Clusters),
		"waived", resp.Waived,
		"quality", resp.Snapshot.QualityScore)
	return resp, nil
}

// analyzeFile parses and walks one file. Cancellation is honoured between
// files only; a file that has started runs to completion.
func (s *ConnascenceServiceImpl) analyzeFile(ctx context.Context, path string, out *fileOutcome) {
	if ctx.Err() != nil {
		return
	}
	out.started = true

	defer func() {
		if r := recover(); r != nil {
			if iv, ok := r.(domain.InvariantViolation); ok {
				out.invariant = &iv
				return
			}
			out.result = nil
			out.parseErr = &domain.ParseError{FilePath: path, Message: fmt.Sprintf("internal parser failure: %v", r)}
		}
	}()

	content, err := s.readFile(path)
	if err != nil {
		out.parseErr = &domain.ParseError{FilePath: path, Message: fmt.Sprintf("failed to read file: %v", err)}
		return
	}

	tree, err := parser.ParseForLanguage(path, content)
	if err != nil {
		out.parseErr = &domain.ParseError{FilePath: path, Message: err.Error()}
		return
	}

	out.result = analyzer.Walk(tree, path, s.opts.Detectors, analyzer.NewDetectors(s.opts.Detectors))
}

// dedupeViolations keeps one violation per (file, line, rule). When two
// share a key the later one in input order wins.
func dedupeViolations(violations []domain.Violation) []domain.Violation {
	index := make(map[domain.DedupKey]int, len(violations))
	out := make([]domain.Violation, 0, len(violations))
	for _, v := range violations {
		if i, ok := index[v.Key()]; ok {
			out[i] = v
			continue
		}
		index[v.Key()] = len(out)
		out = append(out, v)
	}
	return out
}

// sortViolations orders by file, line, column, then rule id
func sortViolations(violations []domain.Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.LineNumber != b.LineNumber {
			return a.LineNumber < b.LineNumber
		}
		if a.ColumnNumber != b.ColumnNumber {
			return a.ColumnNumber < b.ColumnNumber
		}
		return a.RuleID < b.RuleID
	})
}
