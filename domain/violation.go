package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Severity is the closed ordinal severity scale of a violation
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AllSeverities lists severities from most to least severe
var AllSeverities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Rank returns the ordinal position of the severity (low=1 .. critical=4)
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// AtLeast reports whether s is as severe as other or more
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// IsValid reports whether s is one of the four canonical severities
func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// NormalizeSeverity maps ad-hoc severity strings onto the closed scale.
// Matching is case-insensitive; unknown values default to medium.
func NormalizeSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical", "fatal", "blocker":
		return SeverityCritical
	case "high", "error", "major":
		return SeverityHigh
	case "medium", "warning", "warn", "moderate":
		return SeverityMedium
	case "low", "notice", "info", "minor", "hint":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// ConnascenceType is one of the nine connascence categories
type ConnascenceType string

const (
	CoName      ConnascenceType = "Name"
	CoType      ConnascenceType = "Type"
	CoMeaning   ConnascenceType = "Meaning"
	CoPosition  ConnascenceType = "Position"
	CoAlgorithm ConnascenceType = "Algorithm"
	CoExecution ConnascenceType = "Execution"
	CoTiming    ConnascenceType = "Timing"
	CoValues    ConnascenceType = "Values"
	CoIdentity  ConnascenceType = "Identity"
)

// AllConnascenceTypes lists every connascence category
var AllConnascenceTypes = []ConnascenceType{
	CoName, CoType, CoMeaning, CoPosition,
	CoAlgorithm, CoExecution, CoTiming, CoValues,
	CoIdentity,
}

// ParseConnascenceType resolves a type name case-insensitively
func ParseConnascenceType(s string) (ConnascenceType, bool) {
	for _, t := range AllConnascenceTypes {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// Violation is a single detection event. It is immutable once built.
type Violation struct {
	ID              string          `json:"id" yaml:"id"`
	RuleID          string          `json:"rule_id" yaml:"rule_id"`
	Severity        Severity        `json:"severity" yaml:"severity"`
	ConnascenceType ConnascenceType `json:"connascence_type" yaml:"connascence_type"`
	Description     string          `json:"description" yaml:"description"`
	FilePath        string          `json:"file_path" yaml:"file_path"`
	LineNumber      int             `json:"line_number" yaml:"line_number"`
	ColumnNumber    int             `json:"column_number" yaml:"column_number"`
	Weight          float64         `json:"weight" yaml:"weight"`
	Recommendation  string          `json:"recommendation" yaml:"recommendation"`
}

// violationNamespace scopes content-derived violation IDs
var violationNamespace = uuid.MustParse("6f1c1a52-8d0e-4a43-9b7e-0c2f3f9a4d11")

// ViolationInput carries the fields needed to build a Violation
type ViolationInput struct {
	RuleID          string
	Severity        Severity
	ConnascenceType ConnascenceType
	Description     string
	FilePath        string
	Line            int
	Column          int
	Weight          float64
	Recommendation  string
}

// NewViolation validates the input and returns a fully populated Violation.
// The ID is derived from the content so identical inputs produce identical IDs.
func NewViolation(s ViolationInput) (Violation, error) {
	if s.RuleID == "" {
		return Violation{}, fmt.Errorf("violation: rule id is required")
	}
	if s.FilePath == "" {
		return Violation{}, fmt.Errorf("violation %s: file path is required", s.RuleID)
	}
	if s.Line < 1 {
		return Violation{}, fmt.Errorf("violation %s: line must be >= 1, got %d", s.RuleID, s.Line)
	}
	if s.Description == "" {
		return Violation{}, fmt.Errorf("violation %s: description is required", s.RuleID)
	}
	if s.ConnascenceType == "" {
		return Violation{}, fmt.Errorf("violation %s: connascence type is required", s.RuleID)
	}

	severity := s.Severity
	if !severity.IsValid() {
		severity = NormalizeSeverity(string(severity))
	}
	weight := s.Weight
	if weight <= 0 {
		weight = 1
	}

	key := fmt.Sprintf("%s|%d|%d|%s|%s", s.FilePath, s.Line, s.Column, s.RuleID, s.Description)
	return Violation{
		ID:              uuid.NewSHA1(violationNamespace, []byte(key)).String(),
		RuleID:          s.RuleID,
		Severity:        severity,
		ConnascenceType: s.ConnascenceType,
		Description:     s.Description,
		FilePath:        s.FilePath,
		LineNumber:      s.Line,
		ColumnNumber:    s.Column,
		Weight:          weight,
		Recommendation:  s.Recommendation,
	}, nil
}

// DedupKey identifies violations that point at the same place for the same rule
type DedupKey struct {
	FilePath string
	Line     int
	RuleID   string
}

// Key returns the deduplication key of the violation
func (v Violation) Key() DedupKey {
	return DedupKey{FilePath: v.FilePath, Line: v.LineNumber, RuleID: v.RuleID}
}

// Location renders the violation position as file:line[:col]
func (v Violation) Location() string {
	if v.ColumnNumber > 0 {
		return fmt.Sprintf("%s:%d:%d", v.FilePath, v.LineNumber, v.ColumnNumber)
	}
	return fmt.Sprintf("%s:%d", v.FilePath, v.LineNumber)
}

var safetyRulePattern = regexp.MustCompile(`^NASA_RULE(\d+)(_|$)`)

// SafetyRule returns the safety rule key ("Rule1".."Rule10") a rule id belongs to
func SafetyRule(ruleID string) (string, bool) {
	m := safetyRulePattern.FindStringSubmatch(ruleID)
	if m == nil {
		return "", false
	}
	return "Rule" + m[1], true
}

// IsSafetyViolation reports whether the violation comes from a safety rule
func (v Violation) IsSafetyViolation() bool {
	_, ok := SafetyRule(v.RuleID)
	return ok
}
