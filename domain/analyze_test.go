package domain

import "testing"

func TestAnalyzeResponse_CountAtLeast(t *testing.T) {
	resp := &AnalyzeResponse{
		Violations: []Violation{
			{Severity: SeverityLow},
			{Severity: SeverityMedium},
			{Severity: SeverityHigh},
			{Severity: SeverityCritical},
		},
	}

	tests := []struct {
		threshold Severity
		want      int
	}{
		{SeverityLow, 4},
		{SeverityMedium, 3},
		{SeverityHigh, 2},
		{SeverityCritical, 1},
	}
	for _, tt := range tests {
		if got := resp.CountAtLeast(tt.threshold); got != tt.want {
			t.Errorf("CountAtLeast(%s) = %d, want %d", tt.threshold, got, tt.want)
		}
	}
}

func TestMetricsSnapshot_SummaryAndClone(t *testing.T) {
	snap := MetricsSnapshot{
		QualityScore:        0.9,
		NASAComplianceScore: 0.8,
		DuplicationScore:    0.7,
		TotalViolations:     3,
		FilesAnalyzed:       2,
		BySeverity:          map[Severity]int{SeverityHigh: 3},
	}

	s := snap.Summary()
	if s.TotalViolationsFound != 3 || s.TotalFilesAnalyzed != 2 {
		t.Errorf("Unexpected summary counts: %+v", s)
	}
	if s.MECEScore != 0.7 {
		t.Errorf("Expected mece score to mirror duplication score, got %f", s.MECEScore)
	}

	clone := snap.Clone()
	clone.BySeverity[SeverityHigh] = 99
	if snap.BySeverity[SeverityHigh] != 3 {
		t.Error("Clone should not share severity map")
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, name := range []string{"text", "json", "yaml"} {
		if _, ok := ParseOutputFormat(name); !ok {
			t.Errorf("Expected %s to be a valid format", name)
		}
	}
	if _, ok := ParseOutputFormat("html"); ok {
		t.Error("Expected html to be rejected")
	}
}
