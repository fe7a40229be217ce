package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/config"
	"github.com/ludo-technologies/connscan/internal/policy"
	"github.com/ludo-technologies/connscan/internal/testutil"
	"github.com/ludo-technologies/connscan/internal/trend"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	files := make(map[string]string, len(names))
	for _, n := range names {
		files[n] = "# " + n + "\n"
	}
	testutil.WriteFiles(t, dir, files)
}

func rel(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, len(files))
	for i, f := range files {
		r, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = filepath.ToSlash(r)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFileHelperCollectSourceFiles(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, tempDir, "main.py", "types.pyi", "core.c", "core.h", "README.md", "script.js", "pkg/util.py")

	files, err := NewFileHelper().CollectSourceFiles([]string{tempDir}, true, nil, nil)
	if err != nil {
		t.Fatalf("CollectSourceFiles failed: %v", err)
	}

	expected := []string{"core.c", "core.h", "main.py", "pkg/util.py", "types.pyi"}
	if got := rel(t, tempDir, files); !equalStrings(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestFileHelperIsSourceFile(t *testing.T) {
	helper := NewFileHelper()

	tests := []struct {
		path     string
		expected bool
	}{
		{"test.py", true},
		{"test.pyi", true},
		{"test.c", true},
		{"test.h", true},
		{"TEST.PY", true},
		{"test.js", false},
		{"test.cpp", false},
		{"test.go", false},
		{"test.txt", false},
	}

	for _, tt := range tests {
		if result := helper.IsSourceFile(tt.path); result != tt.expected {
			t.Errorf("IsSourceFile(%s) = %v, expected %v", tt.path, result, tt.expected)
		}
	}
}

func TestFileHelperFileExists(t *testing.T) {
	helper := NewFileHelper()
	tempDir := t.TempDir()
	touch(t, tempDir, "exists.py")

	exists, err := helper.FileExists(filepath.Join(tempDir, "exists.py"))
	if err != nil {
		t.Fatalf("FileExists failed: %v", err)
	}
	if !exists {
		t.Error("Expected file to exist")
	}

	exists, err = helper.FileExists(filepath.Join(tempDir, "missing.py"))
	if err != nil {
		t.Fatalf("FileExists failed: %v", err)
	}
	if exists {
		t.Error("Expected file to not exist")
	}

	exists, _ = helper.FileExists(tempDir)
	if exists {
		t.Error("Directories are not files")
	}
}

func TestFileHelperExcludePatterns(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, tempDir,
		"src/app.py",
		"src/__pycache__/app.py",
		".venv/lib/site.py",
		"build/gen.c",
		"src/app_test.py",
		"vendor/lib.c",
	)

	tests := []struct {
		name     string
		exclude  []string
		expected []string
	}{
		{
			name:     "default excludes",
			exclude:  config.DefaultConfig().Analysis.ExcludePatterns,
			expected: []string{"src/app.py", "src/app_test.py", "vendor/lib.c"},
		},
		{
			name:     "bare directory name",
			exclude:  []string{"vendor", "build", ".venv", "__pycache__"},
			expected: []string{"src/app.py", "src/app_test.py"},
		},
		{
			name:     "file glob",
			exclude:  []string{"*_test.py", "**/.venv/**", "**/__pycache__/**", "build/"},
			expected: []string{"src/app.py", "vendor/lib.c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := NewFileHelper().CollectSourceFiles([]string{tempDir}, true, nil, tt.exclude)
			if err != nil {
				t.Fatalf("CollectSourceFiles failed: %v", err)
			}
			if got := rel(t, tempDir, files); !equalStrings(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestFileHelperIncludePatterns(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, tempDir, "app.py", "lib/core.c", "lib/core.h", "stubs/api.pyi")

	files, err := NewFileHelper().CollectSourceFiles([]string{tempDir}, true, []string{"**/*.c", "**/*.h"}, nil)
	if err != nil {
		t.Fatalf("CollectSourceFiles failed: %v", err)
	}

	expected := []string{"lib/core.c", "lib/core.h"}
	if got := rel(t, tempDir, files); !equalStrings(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestFileHelperNonRecursive(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, tempDir, "top.py", "nested/deep.py")

	files, err := NewFileHelper().CollectSourceFiles([]string{tempDir}, false, nil, nil)
	if err != nil {
		t.Fatalf("CollectSourceFiles failed: %v", err)
	}
	if got := rel(t, tempDir, files); !equalStrings(got, []string{"top.py"}) {
		t.Errorf("Expected only top.py, got %v", got)
	}
}

func TestFileHelperRespectsGitignore(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, tempDir, "keep.py", "generated/out.py", "scratch.py")
	if err := os.WriteFile(filepath.Join(tempDir, ".gitignore"), []byte("generated/\nscratch.py\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	helper := NewFileHelper()
	helper.RespectGitignore = true
	files, err := helper.CollectSourceFiles([]string{tempDir}, true, nil, nil)
	if err != nil {
		t.Fatalf("CollectSourceFiles failed: %v", err)
	}
	if got := rel(t, tempDir, files); !equalStrings(got, []string{"keep.py"}) {
		t.Errorf("Expected only keep.py, got %v", got)
	}

	helper.RespectGitignore = false
	files, _ = helper.CollectSourceFiles([]string{tempDir}, true, nil, nil)
	if len(files) != 3 {
		t.Errorf("Expected all 3 files without gitignore, got %d", len(files))
	}
}

func TestFileHelperExplicitFiles(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, tempDir, "a.py", "b.c", "notes.txt")
	a := filepath.Join(tempDir, "a.py")

	files, err := NewFileHelper().CollectSourceFiles(
		[]string{a, filepath.Join(tempDir, "b.c"), filepath.Join(tempDir, "notes.txt"), a, tempDir},
		true, nil, []string{"*.c"})
	if err != nil {
		t.Fatalf("CollectSourceFiles failed: %v", err)
	}
	if got := rel(t, tempDir, files); !equalStrings(got, []string{"a.py"}) {
		t.Errorf("Expected a.py once, got %v", got)
	}

	if _, err := NewFileHelper().CollectSourceFiles([]string{filepath.Join(tempDir, "missing")}, true, nil, nil); err == nil {
		t.Error("Expected an error for a missing path")
	}
}

// stubService records the request and returns a canned response
type stubService struct {
	resp *domain.AnalyzeResponse
	err  error
	req  domain.AnalyzeRequest
}

func (s *stubService) Analyze(_ context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	s.req = req
	return s.resp, s.err
}

func cannedResponse(quality float64, violations int) *domain.AnalyzeResponse {
	return &domain.AnalyzeResponse{
		FilesAnalyzed: 1,
		Snapshot: domain.MetricsSnapshot{
			ID:              "snap",
			Timestamp:       time.Now().UTC(),
			QualityScore:    quality,
			TotalViolations: violations,
			BySeverity:      map[domain.Severity]int{},
			FilesAnalyzed:   1,
		},
	}
}

func TestAnalyzeUseCase_Execute(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, tempDir, "a.py", "b.c")
	historyPath := filepath.Join(tempDir, ".connscan", "history.db")

	svc := &stubService{resp: cannedResponse(0.9, 2)}
	var exported string
	uc, err := NewAnalyzeUseCaseBuilder().
		WithService(svc).
		WithFileCollector(NewFileHelper()).
		WithTrend(NewTrendUseCase(historyPath, 20, 5, nil)).
		WithMetricsExporter(func(path string, snap domain.MetricsSnapshot) error {
			exported = path
			return nil
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	cfg := AnalyzeConfig{Recursive: true, RecordHistory: true, MetricsFile: "metrics.prom"}
	resp, err := uc.Execute(context.Background(), cfg, []string{tempDir})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.FilesAnalyzed != 1 {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if len(svc.req.Paths) != 2 {
		t.Errorf("Expected 2 collected paths, got %v", svc.req.Paths)
	}
	if exported != "metrics.prom" {
		t.Errorf("Expected metrics to be exported, got %q", exported)
	}

	report, err := NewTrendUseCase(historyPath, 20, 5, nil).Report(context.Background())
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if len(report.History) != 1 {
		t.Errorf("Expected 1 recorded snapshot, got %d", len(report.History))
	}
}

func TestAnalyzeUseCase_NoFiles(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, tempDir, "README.md")

	uc := NewAnalyzeUseCase(&stubService{}, nil)
	_, err := uc.Execute(context.Background(), AnalyzeConfig{Recursive: true}, []string{tempDir})
	if !errors.Is(err, ErrNoSourceFiles) {
		t.Errorf("Expected ErrNoSourceFiles, got %v", err)
	}
}

func TestAnalyzeUseCase_CancelledRunNotRecorded(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, tempDir, "a.py")
	historyPath := filepath.Join(tempDir, "history.db")

	resp := cannedResponse(0.5, 1)
	resp.Cancelled = true
	uc, err := NewAnalyzeUseCaseBuilder().
		WithService(&stubService{resp: resp}).
		WithTrend(NewTrendUseCase(historyPath, 20, 5, nil)).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := uc.Execute(context.Background(), AnalyzeConfig{Recursive: true, RecordHistory: true}, []string{tempDir}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := os.Stat(historyPath); !os.IsNotExist(err) {
		t.Error("A cancelled run must not create history")
	}
}

func TestAnalyzeUseCase_ServiceError(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, tempDir, "a.py")
	boom := errors.New("boom")

	uc := NewAnalyzeUseCase(&stubService{err: boom}, NewFileHelper())
	_, err := uc.Execute(context.Background(), AnalyzeConfig{Recursive: true}, []string{tempDir})
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped service error, got %v", err)
	}
}

func TestAnalyzeUseCaseBuilder_RequiresService(t *testing.T) {
	if _, err := NewAnalyzeUseCaseBuilder().Build(); err == nil {
		t.Error("Expected an error without a service")
	}
}

func TestAnalyzeConfigFrom(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.MetricsFile = "m.prom"

	ac := AnalyzeConfigFrom(cfg)
	if !ac.Recursive || !ac.RecordHistory || ac.MetricsFile != "m.prom" {
		t.Errorf("Unexpected analyze config: %+v", ac)
	}
	if len(ac.IncludePatterns) != len(cfg.Analysis.IncludePatterns) {
		t.Error("Include patterns not carried over")
	}
}

func TestTrendUseCase_Lifecycle(t *testing.T) {
	ctx := context.Background()
	historyPath := filepath.Join(t.TempDir(), "history.db")
	uc := NewTrendUseCase(historyPath, 20, 5, nil)

	report, err := uc.Report(ctx)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if report.State != trend.StateNoHistory.String() || report.Trend.Status != domain.TrendInsufficientData {
		t.Errorf("Unexpected empty report: %+v", report)
	}
	if _, err := os.Stat(historyPath); !os.IsNotExist(err) {
		t.Error("Report must not create the history database")
	}

	if _, err := uc.SetBaseline(ctx); !errors.Is(err, trend.ErrNoHistory) {
		t.Errorf("Expected ErrNoHistory, got %v", err)
	}

	first := cannedResponse(0.70, 10).Snapshot
	first.ID = "first"
	if err := uc.Record(ctx, first); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	baseline, err := uc.SetBaseline(ctx)
	if err != nil {
		t.Fatalf("SetBaseline failed: %v", err)
	}
	if baseline.ID != "first" {
		t.Errorf("Expected baseline to be the latest snapshot, got %s", baseline.ID)
	}

	second := cannedResponse(0.85, 2).Snapshot
	second.ID = "second"
	if err := uc.Record(ctx, second); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	report, err = uc.Report(ctx)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if report.State != trend.StateHasBaseline.String() {
		t.Errorf("Expected state has_baseline, got %s", report.State)
	}
	if report.Trend.OverallTrend != domain.TrendExcellent {
		t.Errorf("Expected excellent progress, got %s", report.Trend.OverallTrend)
	}
	if report.Baseline.Status != domain.BaselineSignificantlyImproved {
		t.Errorf("Expected significantly improved, got %s", report.Baseline.Status)
	}
	if report.Baseline.ViolationDelta != -8 {
		t.Errorf("Expected violation delta -8, got %d", report.Baseline.ViolationDelta)
	}
}

func TestEvaluateCheck(t *testing.T) {
	resp := &domain.AnalyzeResponse{
		FilesAnalyzed: 2,
		Violations: []domain.Violation{
			{RuleID: "CON_POSITION", Severity: domain.SeverityHigh, ConnascenceType: domain.CoPosition, FilePath: "a.py", LineNumber: 1, Description: "too many parameters"},
			{RuleID: "CON_MAGIC_LITERAL", Severity: domain.SeverityMedium, ConnascenceType: domain.CoMeaning, FilePath: "a.py", LineNumber: 2, Description: "magic number"},
			{RuleID: "CON_MAGIC_LITERAL", Severity: domain.SeverityLow, ConnascenceType: domain.CoMeaning, FilePath: "b.py", LineNumber: 3, Description: "magic string"},
		},
		ParseErrors: []domain.ParseError{{FilePath: "c.py", Message: "syntax error"}},
	}

	tests := []struct {
		name     string
		failOn   domain.Severity
		budgets  map[string]int
		passed   bool
		blocking int
		exceeded int
	}{
		{"critical threshold passes", domain.SeverityCritical, nil, true, 0, 0},
		{"high threshold fails", domain.SeverityHigh, nil, false, 1, 0},
		{"low threshold counts everything", domain.SeverityLow, nil, false, 3, 0},
		{"budget within limit", domain.SeverityCritical, map[string]int{"total_violations": 3}, true, 0, 0},
		{"budget exceeded", domain.SeverityCritical, map[string]int{"Meaning": 1, "low": 5}, false, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budgets, err := policy.NewBudgets(tt.budgets)
			if err != nil {
				t.Fatal(err)
			}
			result := EvaluateCheck(resp, CheckConfig{FailOn: tt.failOn, Budgets: budgets})

			if result.Passed != tt.passed {
				t.Errorf("Expected passed=%v, got %v", tt.passed, result.Passed)
			}
			wantExit := domain.ExitClean
			if !tt.passed {
				wantExit = domain.ExitViolations
			}
			if result.ExitCode != wantExit {
				t.Errorf("Expected exit code %d, got %d", wantExit, result.ExitCode)
			}
			if result.Summary.BlockingFindings != tt.blocking {
				t.Errorf("Expected %d blocking findings, got %d", tt.blocking, result.Summary.BlockingFindings)
			}
			if result.Summary.BudgetsExceeded != tt.exceeded {
				t.Errorf("Expected %d exceeded budgets, got %d", tt.exceeded, result.Summary.BudgetsExceeded)
			}
			if result.Summary.ParseErrors != 1 {
				t.Errorf("Expected parse errors to be counted, got %d", result.Summary.ParseErrors)
			}
		})
	}
}
