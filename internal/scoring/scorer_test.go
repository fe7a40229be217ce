package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/connscan/domain"
)

func violation(rule string, sev domain.Severity, typ domain.ConnascenceType) domain.Violation {
	return domain.Violation{RuleID: rule, Severity: sev, ConnascenceType: typ, Weight: 1, FilePath: "a.py", LineNumber: 1}
}

func TestScoreEmptyInput(t *testing.T) {
	snap := NewScorer(DefaultConfig()).Score(Input{})

	assert.Equal(t, 1.0, snap.QualityScore)
	assert.Equal(t, 0.0, snap.ConnascenceIndex)
	assert.Equal(t, 1.0, snap.NASAComplianceScore)
	assert.Equal(t, 1.0, snap.DuplicationScore)
	assert.Equal(t, 0, snap.TotalViolations)
	assert.Equal(t, 0, snap.BySeverity[domain.SeverityCritical])
	assert.NotEmpty(t, snap.ID)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestConnascenceIndexScenario(t *testing.T) {
	violations := []domain.Violation{
		violation("CON_POSITION", domain.SeverityHigh, domain.CoPosition),
		violation("CON_MAGIC_LITERAL", domain.SeverityMedium, domain.CoMeaning),
	}
	snap := NewScorer(DefaultConfig()).Score(Input{Violations: violations, FilesAnalyzed: 1})

	assert.InDelta(t, 12.0, snap.ConnascenceIndex, 1e-9)
	assert.Equal(t, 1.0, snap.NASAComplianceScore)
	assert.Equal(t, 2, snap.TotalViolations)
	assert.Equal(t, 1, snap.BySeverity[domain.SeverityHigh])
	assert.Equal(t, 1, snap.ByType[domain.CoMeaning])
	assert.InDelta(t, 1-0.4*0.12, snap.QualityScore, 1e-9)
}

func TestConnascenceIndexUsesViolationWeight(t *testing.T) {
	v := violation("CON_GOD_OBJECT", domain.SeverityCritical, domain.CoIdentity)
	v.Weight = 2.5
	s := NewScorer(DefaultConfig())
	assert.InDelta(t, 10*1.4*2.5, s.ConnascenceIndex([]domain.Violation{v}), 1e-9)
}

func TestNASAComplianceScore(t *testing.T) {
	s := NewScorer(DefaultConfig())
	tests := []struct {
		name       string
		violations []domain.Violation
		want       float64
	}{
		{"none", nil, 1.0},
		{"rule1 critical", []domain.Violation{violation("NASA_RULE1_GOTO", domain.SeverityCritical, domain.CoExecution)}, 0.70},
		{"rule3 high", []domain.Violation{violation("NASA_RULE3_DYNAMIC_ALLOCATION", domain.SeverityHigh, domain.CoTiming)}, 1 - 0.12*1.5},
		{"unknown rule", []domain.Violation{violation("NASA_RULE42_X", domain.SeverityLow, domain.CoType)}, 1 - 0.05*0.5},
		{"non safety ignored", []domain.Violation{violation("CON_POSITION", domain.SeverityCritical, domain.CoPosition)}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.NASAComplianceScore(tt.violations), 1e-9)
		})
	}
}

func TestDuplicationScoreScenario(t *testing.T) {
	s := NewScorer(DefaultConfig())
	cluster := domain.DuplicateCluster{
		ID:         "cluster-1",
		Functions:  []domain.FunctionRef{{FilePath: "a.py", Name: "f", Line: 1}, {FilePath: "a.py", Name: "g", Line: 9}},
		Similarity: 0.9,
	}
	assert.InDelta(t, 1.0-0.05*0.9*0.4, s.DuplicationScore([]domain.DuplicateCluster{cluster}), 1e-9)

	var big domain.DuplicateCluster
	big.Similarity = 1.0
	for i := 0; i < 40; i++ {
		big.Functions = append(big.Functions, domain.FunctionRef{FilePath: "b.py", Line: i + 1})
	}
	// size multiplier caps at 2
	assert.InDelta(t, 1.0-0.05*2, s.DuplicationScore([]domain.DuplicateCluster{big}), 1e-9)
}

func TestScoreBoundsLargeInput(t *testing.T) {
	var violations []domain.Violation
	for i := 0; i < 10000; i++ {
		violations = append(violations,
			violation(fmt.Sprintf("NASA_RULE%d_X", i%10+1), domain.AllSeverities[i%4], domain.AllConnascenceTypes[i%9]))
	}
	var clusters []domain.DuplicateCluster
	for i := 0; i < 100; i++ {
		clusters = append(clusters, domain.DuplicateCluster{
			Functions:  make([]domain.FunctionRef, 12),
			Similarity: 1.0,
		})
	}

	snap := NewScorer(DefaultConfig()).Score(Input{Violations: violations, Clusters: clusters})
	assert.Greater(t, snap.ConnascenceIndex, 1000.0)
	for _, v := range []float64{snap.QualityScore, snap.NASAComplianceScore, snap.DuplicationScore} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, 0.0, snap.NASAComplianceScore)
	assert.InDelta(t, 0.0, snap.QualityScore, 1e-9)
}

func TestDynamicWeights(t *testing.T) {
	s := NewScorer(DefaultConfig())

	w := s.DynamicWeights(0, 1, 1)
	assert.InDelta(t, 0.4, w.Connascence, 1e-9)
	assert.InDelta(t, 0.3, w.NASA, 1e-9)

	w = s.DynamicWeights(0, 0.2, 1)
	assert.InDelta(t, 0.35, w.Connascence, 1e-9)
	assert.InDelta(t, 0.4, w.NASA, 1e-9)
	assert.InDelta(t, 0.25, w.Duplication, 1e-9)

	w = s.DynamicWeights(80, 0.2, 0.1)
	assert.InDelta(t, 1.0, w.Connascence+w.NASA+w.Duplication, 1e-9)
	assert.InDelta(t, 0.4, w.Connascence, 1e-9)
	assert.InDelta(t, 0.3, w.NASA, 1e-9)
}

func TestDynamicWeightsFloorAtZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseWeights = domain.ScoreWeights{Connascence: 1, NASA: 0.01, Duplication: 0.01}
	w := NewScorer(cfg).DynamicWeights(80, 1, 1)
	assert.Equal(t, 0.0, w.NASA)
	assert.Equal(t, 0.0, w.Duplication)
	assert.Equal(t, 1.0, w.Connascence)
}

func TestScoreDeterministic(t *testing.T) {
	violations := []domain.Violation{
		violation("NASA_RULE2_UNBOUNDED_LOOP", domain.SeverityCritical, domain.CoExecution),
		violation("CON_MAGIC_LITERAL", domain.SeverityMedium, domain.CoMeaning),
		violation("CON_POSITION", domain.SeverityHigh, domain.CoPosition),
	}
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewScorer(DefaultConfig())
	a := s.Score(Input{Violations: violations, Timestamp: ts})

	reversed := []domain.Violation{violations[2], violations[1], violations[0]}
	b := s.Score(Input{Violations: reversed, Timestamp: ts})

	require.Equal(t, ts, a.Timestamp)
	assert.Equal(t, a.QualityScore, b.QualityScore)
	assert.Equal(t, a.ConnascenceIndex, b.ConnascenceIndex)
	assert.Equal(t, a.NASAComplianceScore, b.NASAComplianceScore)
	assert.Equal(t, a.Weights, b.Weights)
}

func TestConnascenceScoreNormalizer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnascenceNormalize = 200
	s := NewScorer(cfg)
	assert.InDelta(t, 0.75, s.ConnascenceScore(50), 1e-9)
	assert.Equal(t, 0.0, s.ConnascenceScore(500))
}
