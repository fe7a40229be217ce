package domain

// CheckResult represents the result of a quality gate run
type CheckResult struct {
	Passed      bool             `json:"passed" yaml:"passed"`
	ExitCode    int              `json:"exit_code" yaml:"exit_code"`
	Violations  []CheckViolation `json:"violations" yaml:"violations"`
	Summary     CheckSummary     `json:"summary" yaml:"summary"`
	Duration    int64            `json:"duration_ms" yaml:"duration_ms"`
	GeneratedAt string           `json:"generated_at" yaml:"generated_at"`
	Version     string           `json:"version" yaml:"version"`
}

// CheckViolation represents a single gate failure
type CheckViolation struct {
	Category  string `json:"category" yaml:"category"`                       // severity, budget, parse
	Rule      string `json:"rule" yaml:"rule"`                               // rule id or budget key
	Severity  string `json:"severity" yaml:"severity"`                       // critical, high, medium, low
	Message   string `json:"message" yaml:"message"`                         // Human-readable description
	Location  string `json:"location,omitempty" yaml:"location,omitempty"`   // File:line if applicable
	Actual    string `json:"actual" yaml:"actual"`                           // Actual value
	Threshold string `json:"threshold,omitempty" yaml:"threshold,omitempty"` // Configured threshold
}

// CheckSummary provides aggregate statistics
type CheckSummary struct {
	FilesAnalyzed    int     `json:"files_analyzed" yaml:"files_analyzed"`
	TotalViolations  int     `json:"total_violations" yaml:"total_violations"`
	FailOn           string  `json:"fail_on" yaml:"fail_on"`
	BlockingFindings int     `json:"blocking_findings" yaml:"blocking_findings"`
	BudgetsChecked   bool    `json:"budgets_checked" yaml:"budgets_checked"`
	BudgetsExceeded  int     `json:"budgets_exceeded" yaml:"budgets_exceeded"`
	ParseErrors      int     `json:"parse_errors" yaml:"parse_errors"`
	QualityScore     float64 `json:"quality_score" yaml:"quality_score"`
}

// Exit codes shared by the CLI commands
const (
	ExitClean      = 0
	ExitViolations = 1
	ExitFailure    = 2
)
