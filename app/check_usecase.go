package app

import (
	"fmt"
	"strconv"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/policy"
)

// CheckConfig holds the quality gate settings
type CheckConfig struct {
	// FailOn is the lowest severity that fails the gate
	FailOn domain.Severity

	// Budgets may be nil
	Budgets *policy.Budgets
}

// EvaluateCheck applies the failure threshold and the violation budgets to
// an analysis response. Parse errors are counted but do not fail the gate.
func EvaluateCheck(resp *domain.AnalyzeResponse, cfg CheckConfig) *domain.CheckResult {
	failOn := cfg.FailOn
	if !failOn.IsValid() {
		failOn = domain.SeverityHigh
	}

	result := &domain.CheckResult{
		Passed:     true,
		ExitCode:   domain.ExitClean,
		Violations: []domain.CheckViolation{},
		Summary: domain.CheckSummary{
			FilesAnalyzed:   resp.FilesAnalyzed,
			TotalViolations: len(resp.Violations),
			FailOn:          string(failOn),
			ParseErrors:     len(resp.ParseErrors),
			QualityScore:    resp.Snapshot.QualityScore,
		},
		Duration:    resp.DurationMs,
		GeneratedAt: resp.GeneratedAt,
		Version:     resp.Version,
	}

	for _, v := range resp.Violations {
		if !v.Severity.AtLeast(failOn) {
			continue
		}
		result.Summary.BlockingFindings++
		result.Violations = append(result.Violations, domain.CheckViolation{
			Category:  "severity",
			Rule:      v.RuleID,
			Severity:  string(v.Severity),
			Message:   v.Description,
			Location:  v.Location(),
			Actual:    string(v.Severity),
			Threshold: string(failOn),
		})
	}

	if !cfg.Budgets.Empty() {
		result.Summary.BudgetsChecked = true
		for _, b := range cfg.Budgets.Check(resp.Violations).Exceeded() {
			result.Summary.BudgetsExceeded++
			result.Violations = append(result.Violations, domain.CheckViolation{
				Category:  "budget",
				Rule:      b.Key,
				Severity:  string(failOn),
				Message:   fmt.Sprintf("budget %s exceeded: %d violations, limit %d", b.Key, b.Usage, b.Limit),
				Actual:    strconv.Itoa(b.Usage),
				Threshold: strconv.Itoa(b.Limit),
			})
		}
	}

	if len(result.Violations) > 0 {
		result.Passed = false
		result.ExitCode = domain.ExitViolations
	}
	return result
}
