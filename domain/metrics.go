package domain

import "time"

// ScoreWeights are the blend weights of the headline quality score
type ScoreWeights struct {
	Connascence float64 `json:"connascence" yaml:"connascence"`
	NASA        float64 `json:"nasa" yaml:"nasa"`
	Duplication float64 `json:"duplication" yaml:"duplication"`
}

// MetricsSnapshot is a point-in-time scoring record
type MetricsSnapshot struct {
	ID                  string                  `json:"id" yaml:"id"`
	Timestamp           time.Time               `json:"timestamp" yaml:"timestamp"`
	QualityScore        float64                 `json:"quality_score" yaml:"quality_score"`
	ConnascenceIndex    float64                 `json:"connascence_index" yaml:"connascence_index"`
	NASAComplianceScore float64                 `json:"nasa_compliance_score" yaml:"nasa_compliance_score"`
	DuplicationScore    float64                 `json:"duplication_score" yaml:"duplication_score"`
	TotalViolations     int                     `json:"total_violations" yaml:"total_violations"`
	BySeverity          map[Severity]int        `json:"by_severity" yaml:"by_severity"`
	ByType              map[ConnascenceType]int `json:"by_type,omitempty" yaml:"by_type,omitempty"`
	FilesAnalyzed       int                     `json:"files_analyzed" yaml:"files_analyzed"`
	ClusterCount        int                     `json:"cluster_count" yaml:"cluster_count"`
	Weights             ScoreWeights            `json:"weights" yaml:"weights"`
}

// Summary is the dashboard view of a snapshot
type Summary struct {
	TotalViolationsFound int     `json:"total_violations_found" yaml:"total_violations_found"`
	TotalFilesAnalyzed   int     `json:"total_files_analyzed" yaml:"total_files_analyzed"`
	NASAComplianceScore  float64 `json:"nasa_compliance_score" yaml:"nasa_compliance_score"`
	MECEScore            float64 `json:"mece_score" yaml:"mece_score"`
	QualityScore         float64 `json:"quality_score" yaml:"quality_score"`
}

// Summary returns the dashboard accessor view of the snapshot
func (s MetricsSnapshot) Summary() Summary {
	return Summary{
		TotalViolationsFound: s.TotalViolations,
		TotalFilesAnalyzed:   s.FilesAnalyzed,
		NASAComplianceScore:  s.NASAComplianceScore,
		MECEScore:            s.DuplicationScore,
		QualityScore:         s.QualityScore,
	}
}

// Clone returns a deep copy of the snapshot
func (s MetricsSnapshot) Clone() MetricsSnapshot {
	out := s
	if s.BySeverity != nil {
		out.BySeverity = make(map[Severity]int, len(s.BySeverity))
		for k, v := range s.BySeverity {
			out.BySeverity[k] = v
		}
	}
	if s.ByType != nil {
		out.ByType = make(map[ConnascenceType]int, len(s.ByType))
		for k, v := range s.ByType {
			out.ByType[k] = v
		}
	}
	return out
}

// Trend direction labels
const (
	TrendImproving        = "improving"
	TrendDegrading        = "degrading"
	TrendStable           = "stable"
	TrendExcellent        = "excellent_progress"
	TrendNeedsAttention   = "needs_attention"
	TrendMixed            = "mixed"
	TrendInsufficientData = "insufficient_data"
)

// Baseline comparison labels
const (
	BaselineNone                  = "no_baseline"
	BaselineSignificantlyImproved = "significantly_improved"
	BaselineImproved              = "improved"
	BaselineStable                = "stable"
	BaselineDegraded              = "degraded"
	BaselineSignificantlyDegraded = "significantly_degraded"
)

// TrendAnalysis describes how quality moved across recent snapshots
type TrendAnalysis struct {
	Status            string  `json:"status" yaml:"status"`
	QualityTrend      string  `json:"quality_trend,omitempty" yaml:"quality_trend,omitempty"`
	ViolationTrend    string  `json:"violation_trend,omitempty" yaml:"violation_trend,omitempty"`
	OverallTrend      string  `json:"overall_trend,omitempty" yaml:"overall_trend,omitempty"`
	QualityDelta      float64 `json:"quality_delta" yaml:"quality_delta"`
	ViolationDelta    int     `json:"violation_delta" yaml:"violation_delta"`
	SnapshotsAnalyzed int     `json:"snapshots_analyzed" yaml:"snapshots_analyzed"`
}

// BaselineComparison compares the latest snapshot against the baseline
type BaselineComparison struct {
	Status          string    `json:"status" yaml:"status"`
	BaselineQuality float64   `json:"baseline_quality,omitempty" yaml:"baseline_quality,omitempty"`
	CurrentQuality  float64   `json:"current_quality,omitempty" yaml:"current_quality,omitempty"`
	QualityDelta    float64   `json:"quality_delta" yaml:"quality_delta"`
	ViolationDelta  int       `json:"violation_delta" yaml:"violation_delta"`
	BaselineTakenAt time.Time `json:"baseline_taken_at,omitempty" yaml:"baseline_taken_at,omitempty"`
}

// TrendReport is everything the trend command prints
type TrendReport struct {
	State    string             `json:"state" yaml:"state"`
	Trend    TrendAnalysis      `json:"trend" yaml:"trend"`
	Baseline BaselineComparison `json:"baseline" yaml:"baseline"`
	History  []MetricsSnapshot  `json:"history" yaml:"history"`
}
