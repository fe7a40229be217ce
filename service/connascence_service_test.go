package service

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/analyzer"
	"github.com/ludo-technologies/connscan/internal/policy"
	"github.com/ludo-technologies/connscan/internal/testutil"
)

const eightParams = `def configure(a, b, c, d, e, f, g, h):
    return a * 42
`

const twinFunctions = `def total_price(items):
    result = 0
    for item in items:
        if item.active:
            result += item.price * item.qty
    return result

def sum_weights(parcels):
    acc = 0
    for p in parcels:
        if p.valid:
            acc += p.weight * p.count
    return acc
`

// writeSources writes files under a temp dir and returns their paths sorted
func writeSources(t *testing.T, files map[string]string) []string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, files)
	paths := make([]string, 0, len(files))
	for name := range files {
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths
}

func analyze(t *testing.T, opts ServiceOptions, paths []string) *domain.AnalyzeResponse {
	t.Helper()
	resp, err := NewConnascenceService(opts, nil).Analyze(context.Background(), domain.AnalyzeRequest{Paths: paths})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	return resp
}

func TestConnascenceService_EightParamsScenario(t *testing.T) {
	paths := writeSources(t, map[string]string{"scenario.py": eightParams})

	resp := analyze(t, DefaultServiceOptions(), paths)

	if len(resp.Violations) != 2 {
		t.Fatalf("Expected 2 violations, got %d: %+v", len(resp.Violations), resp.Violations)
	}
	if resp.Violations[0].RuleID != analyzer.RulePosition || resp.Violations[0].Severity != domain.SeverityHigh {
		t.Errorf("Expected first violation CON_POSITION/high, got %s/%s", resp.Violations[0].RuleID, resp.Violations[0].Severity)
	}
	if resp.Violations[1].RuleID != analyzer.RuleMagicLiteral || resp.Violations[1].Severity != domain.SeverityMedium {
		t.Errorf("Expected second violation magic literal/medium, got %s/%s", resp.Violations[1].RuleID, resp.Violations[1].Severity)
	}
	if math.Abs(resp.Snapshot.ConnascenceIndex-12.0) > 1e-9 {
		t.Errorf("Expected connascence index 12.0, got %f", resp.Snapshot.ConnascenceIndex)
	}
	if resp.FilesAnalyzed != 1 || resp.Summary.TotalFilesAnalyzed != 1 {
		t.Errorf("Expected 1 file analyzed, got %d", resp.FilesAnalyzed)
	}
	if resp.Summary.TotalViolationsFound != 2 {
		t.Errorf("Expected summary to report 2 violations, got %d", resp.Summary.TotalViolationsFound)
	}
	if resp.Profile != "default" {
		t.Errorf("Expected profile default, got %s", resp.Profile)
	}
}

func TestConnascenceService_EmptyInput(t *testing.T) {
	resp := analyze(t, DefaultServiceOptions(), nil)

	if len(resp.Violations) != 0 || len(resp.Clusters) != 0 {
		t.Errorf("Expected no violations or clusters, got %d/%d", len(resp.Violations), len(resp.Clusters))
	}
	if resp.Snapshot.QualityScore != 1.0 {
		t.Errorf("Expected quality 1.0 on empty input, got %f", resp.Snapshot.QualityScore)
	}
	if resp.Snapshot.ConnascenceIndex != 0 {
		t.Errorf("Expected index 0 on empty input, got %f", resp.Snapshot.ConnascenceIndex)
	}
	if resp.Cancelled {
		t.Error("Empty run should not be cancelled")
	}
}

func TestConnascenceService_PartialFailure(t *testing.T) {
	files := make(map[string]string, 10)
	for i := 1; i <= 10; i++ {
		name := fmt.Sprintf("mod%02d.py", i)
		if i == 5 {
			files[name] = "def broken(:\n    return\n"
			continue
		}
		files[name] = fmt.Sprintf("def handler_%d(a, b, c, d, e, f, g, h):\n    return a\n", i)
	}
	paths := writeSources(t, files)

	resp := analyze(t, DefaultServiceOptions(), paths)

	if resp.FilesAnalyzed != 9 {
		t.Errorf("Expected 9 files analyzed, got %d", resp.FilesAnalyzed)
	}
	if len(resp.ParseErrors) != 1 {
		t.Fatalf("Expected 1 parse error, got %d", len(resp.ParseErrors))
	}
	if filepath.Base(resp.ParseErrors[0].FilePath) != "mod05.py" {
		t.Errorf("Expected parse error for mod05.py, got %s", resp.ParseErrors[0].FilePath)
	}
	if len(resp.Violations) != 9 {
		t.Errorf("Expected 9 violations from the valid files, got %d", len(resp.Violations))
	}
	for _, v := range resp.Violations {
		if filepath.Base(v.FilePath) == "mod05.py" {
			t.Errorf("Unexpected violation in the invalid file: %+v", v)
		}
	}
	if !resp.HasErrors() {
		t.Error("Expected HasErrors to report the parse error")
	}
}

func TestConnascenceService_UnreadableFile(t *testing.T) {
	paths := writeSources(t, map[string]string{"ok.py": eightParams})
	paths = append(paths, filepath.Join(t.TempDir(), "missing.py"))

	resp := analyze(t, DefaultServiceOptions(), paths)

	if resp.FilesAnalyzed != 1 || len(resp.ParseErrors) != 1 {
		t.Errorf("Expected 1 analyzed file and 1 parse error, got %d/%d", resp.FilesAnalyzed, len(resp.ParseErrors))
	}
}

func TestConnascenceService_Cancelled(t *testing.T) {
	paths := writeSources(t, map[string]string{"a.py": eightParams, "b.py": eightParams})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := NewConnascenceService(DefaultServiceOptions(), nil).Analyze(ctx, domain.AnalyzeRequest{Paths: paths})
	if err != nil {
		t.Fatalf("Cancelled analysis should not fail: %v", err)
	}
	if !resp.Cancelled {
		t.Error("Expected Cancelled to be set")
	}
	if resp.FilesAnalyzed != 0 {
		t.Errorf("Expected no files analyzed after cancellation, got %d", resp.FilesAnalyzed)
	}
}

func TestConnascenceService_DuplicateClusters(t *testing.T) {
	paths := writeSources(t, map[string]string{"twins.py": twinFunctions})

	resp := analyze(t, DefaultServiceOptions(), paths)

	if len(resp.Clusters) != 1 {
		t.Fatalf("Expected 1 cluster, got %d", len(resp.Clusters))
	}
	if resp.Clusters[0].Size() != 2 {
		t.Errorf("Expected 2 cluster members, got %d", resp.Clusters[0].Size())
	}
	algorithm := 0
	for _, v := range resp.Violations {
		if v.RuleID == analyzer.RuleAlgorithm {
			algorithm++
		}
	}
	if algorithm != 2 {
		t.Errorf("Expected 2 CON_ALGORITHM violations, got %d", algorithm)
	}
	if resp.Snapshot.DuplicationScore >= 1.0 {
		t.Errorf("Expected duplication score below 1.0, got %f", resp.Snapshot.DuplicationScore)
	}

	opts := DefaultServiceOptions()
	opts.EmitClusters = false
	resp = analyze(t, opts, paths)
	if len(resp.Clusters) != 1 || len(resp.Violations) != 0 {
		t.Errorf("Expected the cluster without violations, got %d clusters and %d violations", len(resp.Clusters), len(resp.Violations))
	}

	opts = DefaultServiceOptions()
	opts.MECEEnabled = false
	opts.Detectors.Algorithm.Enabled = false
	resp = analyze(t, opts, paths)
	if len(resp.Clusters) != 0 {
		t.Errorf("Expected no clusters with clustering disabled, got %d", len(resp.Clusters))
	}
}

func TestConnascenceService_Waivers(t *testing.T) {
	paths := writeSources(t, map[string]string{"scenario.py": eightParams})
	waivers, err := policy.NewWaiverSet([]policy.Waiver{{Scope: policy.ScopeRule, Pattern: analyzer.RuleMagicLiteral}})
	if err != nil {
		t.Fatalf("NewWaiverSet failed: %v", err)
	}

	opts := DefaultServiceOptions()
	opts.Waivers = waivers
	resp := analyze(t, opts, paths)

	if resp.Waived != 1 {
		t.Errorf("Expected 1 waived violation, got %d", resp.Waived)
	}
	if len(resp.Violations) != 1 || resp.Violations[0].RuleID != analyzer.RulePosition {
		t.Errorf("Expected only the position violation to remain, got %+v", resp.Violations)
	}
	if math.Abs(resp.Snapshot.ConnascenceIndex-8.0) > 1e-9 {
		t.Errorf("Expected waived violations to be excluded from scoring, index %f", resp.Snapshot.ConnascenceIndex)
	}
}

func TestConnascenceService_Deterministic(t *testing.T) {
	files := map[string]string{
		"a.py":     eightParams,
		"b.py":     twinFunctions,
		"c.c":      "int scale(int v) { return v * 1000; }\n",
		"d/e.py":   "class Config:\n    timeout = 3600\n",
		"d/f.pyi":  "def stub(a, b, c, d, e) -> None: ...\n",
		"g/h/i.py": eightParams,
	}
	paths := writeSources(t, files)

	serial := DefaultServiceOptions()
	serial.MaxConcurrency = 1
	parallel := DefaultServiceOptions()
	parallel.MaxConcurrency = 8

	first := analyze(t, serial, paths)
	second := analyze(t, parallel, paths)

	if len(first.Violations) != len(second.Violations) {
		t.Fatalf("Violation counts differ: %d vs %d", len(first.Violations), len(second.Violations))
	}
	for i := range first.Violations {
		if first.Violations[i] != second.Violations[i] {
			t.Errorf("Violation %d differs:\n%+v\n%+v", i, first.Violations[i], second.Violations[i])
		}
	}
	if first.Snapshot.QualityScore != second.Snapshot.QualityScore ||
		first.Snapshot.ConnascenceIndex != second.Snapshot.ConnascenceIndex {
		t.Errorf("Scores differ: %+v vs %+v", first.Snapshot, second.Snapshot)
	}
}

func TestDedupeViolations_LastWriterWins(t *testing.T) {
	violations := []domain.Violation{
		{ID: "first", RuleID: "R", FilePath: "a.py", LineNumber: 1, Description: "old"},
		{ID: "other", RuleID: "R", FilePath: "a.py", LineNumber: 2},
		{ID: "second", RuleID: "R", FilePath: "a.py", LineNumber: 1, Description: "new"},
	}

	out := dedupeViolations(violations)

	if len(out) != 2 {
		t.Fatalf("Expected 2 violations after dedupe, got %d", len(out))
	}
	if out[0].ID != "second" {
		t.Errorf("Expected the later violation to win, got %s", out[0].ID)
	}
}

func TestSortViolations(t *testing.T) {
	violations := []domain.Violation{
		{RuleID: "B", FilePath: "b.py", LineNumber: 1},
		{RuleID: "B", FilePath: "a.py", LineNumber: 3, ColumnNumber: 2},
		{RuleID: "A", FilePath: "a.py", LineNumber: 3, ColumnNumber: 2},
		{RuleID: "Z", FilePath: "a.py", LineNumber: 3, ColumnNumber: 1},
	}

	sortViolations(violations)

	expected := []string{"a.py:3:1 Z", "a.py:3:2 A", "a.py:3:2 B", "b.py:1 B"}
	for i, v := range violations {
		got := v.Location() + " " + v.RuleID
		if got != expected[i] {
			t.Errorf("Position %d: expected %s, got %s", i, expected[i], got)
		}
	}
}
