package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ludo-technologies/connscan/domain"
)

// Default severity weights used by the connascence index
var DefaultSeverityWeights = map[domain.Severity]float64{
	domain.SeverityLow:      1,
	domain.SeverityMedium:   2,
	domain.SeverityHigh:     5,
	domain.SeverityCritical: 10,
}

// Default per-type multipliers used by the connascence index
var DefaultTypeWeights = map[domain.ConnascenceType]float64{
	domain.CoMeaning:   2.0,
	domain.CoPosition:  1.6,
	domain.CoExecution: 2.0,
	domain.CoTiming:    1.8,
	domain.CoIdentity:  1.4,
	domain.CoType:      1.3,
	domain.CoAlgorithm: 1.2,
	domain.CoValues:    1.0,
	domain.CoName:      1.0,
}

// Default penalty per safety rule occurrence
var DefaultRuleWeights = map[string]float64{
	"Rule1":  0.15,
	"Rule2":  0.12,
	"Rule3":  0.12,
	"Rule4":  0.10,
	"Rule5":  0.08,
	"Rule6":  0.06,
	"Rule7":  0.06,
	"Rule8":  0.05,
	"Rule9":  0.05,
	"Rule10": 0.05,
}

// Default multipliers applied to safety rule penalties
var DefaultSeverityMultipliers = map[domain.Severity]float64{
	domain.SeverityLow:      0.5,
	domain.SeverityMedium:   1.0,
	domain.SeverityHigh:     1.5,
	domain.SeverityCritical: 2.0,
}

const (
	unknownRuleWeight        = 0.05
	unknownSeverityWeight    = 2.0
	unknownTypeWeight        = 1.0
	duplicationBasePenalty   = 0.05
	duplicationSizeDivisor   = 5.0
	duplicationMaxMultiplier = 2.0
	problemScoreThreshold    = 0.5
	problemIndexThreshold    = 50.0
	weightBoost              = 0.1
	weightReduction          = 0.05
)

// Config holds the weights the scorer applies
type Config struct {
	SeverityWeights      map[domain.Severity]float64
	TypeWeights          map[domain.ConnascenceType]float64
	RuleWeights          map[string]float64
	SeverityMultipliers  map[domain.Severity]float64
	BaseWeights          domain.ScoreWeights
	ConnascenceNormalize float64
}

// DefaultConfig returns the built-in scoring weights
func DefaultConfig() Config {
	return Config{
		SeverityWeights:      DefaultSeverityWeights,
		TypeWeights:          DefaultTypeWeights,
		RuleWeights:          DefaultRuleWeights,
		SeverityMultipliers:  DefaultSeverityMultipliers,
		BaseWeights:          domain.ScoreWeights{Connascence: 0.4, NASA: 0.3, Duplication: 0.3},
		ConnascenceNormalize: 100,
	}
}

// Scorer turns a violation set and duplicate clusters into a MetricsSnapshot.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	cfg Config
	now func() time.Time
}

// NewScorer creates a scorer; nil maps fall back to the defaults
func NewScorer(cfg Config) *Scorer {
	def := DefaultConfig()
	if cfg.SeverityWeights == nil {
		cfg.SeverityWeights = def.SeverityWeights
	}
	if cfg.TypeWeights == nil {
		cfg.TypeWeights = def.TypeWeights
	}
	if cfg.RuleWeights == nil {
		cfg.RuleWeights = def.RuleWeights
	}
	if cfg.SeverityMultipliers == nil {
		cfg.SeverityMultipliers = def.SeverityMultipliers
	}
	if cfg.BaseWeights == (domain.ScoreWeights{}) {
		cfg.BaseWeights = def.BaseWeights
	}
	if cfg.ConnascenceNormalize <= 0 {
		cfg.ConnascenceNormalize = def.ConnascenceNormalize
	}
	return &Scorer{cfg: cfg, now: time.Now}
}

// Input is everything one scoring pass consumes
type Input struct {
	Violations    []domain.Violation
	Clusters      []domain.DuplicateCluster
	FilesAnalyzed int
	Timestamp     time.Time
}

// Score computes the snapshot. Every field except ID and Timestamp depends
// only on the input and the configured weights.
func (s *Scorer) Score(in Input) domain.MetricsSnapshot {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	index := s.ConnascenceIndex(in.Violations)
	nasa := s.NASAComplianceScore(in.Violations)
	dup := s.DuplicationScore(in.Clusters)
	weights := s.DynamicWeights(index, nasa, dup)

	snap := domain.MetricsSnapshot{
		ID:                  uuid.NewString(),
		Timestamp:           ts.UTC(),
		QualityScore:        s.qualityScore(index, nasa, dup, weights),
		ConnascenceIndex:    index,
		NASAComplianceScore: nasa,
		DuplicationScore:    dup,
		TotalViolations:     len(in.Violations),
		BySeverity:          make(map[domain.Severity]int, len(domain.AllSeverities)),
		ByType:              make(map[domain.ConnascenceType]int),
		FilesAnalyzed:       in.FilesAnalyzed,
		ClusterCount:        len(in.Clusters),
		Weights:             weights,
	}
	for _, sev := range domain.AllSeverities {
		snap.BySeverity[sev] = 0
	}
	for _, v := range in.Violations {
		snap.BySeverity[v.Severity]++
		snap.ByType[v.ConnascenceType]++
	}
	return snap
}

// ConnascenceIndex sums severity x type x violation weight
func (s *Scorer) ConnascenceIndex(violations []domain.Violation) float64 {
	// summation order is fixed so the float result is reproducible
	terms := make([]float64, 0, len(violations))
	for _, v := range violations {
		sev, ok := s.cfg.SeverityWeights[v.Severity]
		if !ok {
			sev = unknownSeverityWeight
		}
		typ, ok := s.cfg.TypeWeights[v.ConnascenceType]
		if !ok {
			typ = unknownTypeWeight
		}
		w := v.Weight
		if w <= 0 {
			w = 1
		}
		terms = append(terms, sev*typ*w)
	}
	return sumSorted(terms)
}

// NASAComplianceScore starts at 1 and subtracts a penalty per safety violation
func (s *Scorer) NASAComplianceScore(violations []domain.Violation) float64 {
	var penalties []float64
	for _, v := range violations {
		rule, ok := domain.SafetyRule(v.RuleID)
		if !ok {
			continue
		}
		base, ok := s.cfg.RuleWeights[rule]
		if !ok {
			base = unknownRuleWeight
		}
		mult, ok := s.cfg.SeverityMultipliers[v.Severity]
		if !ok {
			mult = 1.0
		}
		penalties = append(penalties, base*mult)
	}
	return clamp01(1 - sumSorted(penalties))
}

// DuplicationScore starts at 1 and subtracts a penalty per cluster
func (s *Scorer) DuplicationScore(clusters []domain.DuplicateCluster) float64 {
	penalties := make([]float64, 0, len(clusters))
	for _, c := range clusters {
		size := math.Min(duplicationMaxMultiplier, float64(c.Size())/duplicationSizeDivisor)
		penalties = append(penalties, duplicationBasePenalty*c.Similarity*size)
	}
	return clamp01(1 - sumSorted(penalties))
}

// ConnascenceScore inverts the unbounded index into [0, 1]
func (s *Scorer) ConnascenceScore(index float64) float64 {
	return clamp01(1 - index/s.cfg.ConnascenceNormalize)
}

// DynamicWeights boosts the weight of each problem dimension and
// renormalizes so the weights sum to 1
func (s *Scorer) DynamicWeights(index, nasa, dup float64) domain.ScoreWeights {
	w := s.cfg.BaseWeights
	if nasa < problemScoreThreshold {
		w.NASA += weightBoost
		w.Connascence -= weightReduction
		w.Duplication -= weightReduction
	}
	if dup < problemScoreThreshold {
		w.Duplication += weightBoost
		w.Connascence -= weightReduction
		w.NASA -= weightReduction
	}
	if index > problemIndexThreshold {
		w.Connascence += weightBoost
		w.NASA -= weightReduction
		w.Duplication -= weightReduction
	}
	w.Connascence = math.Max(0, w.Connascence)
	w.NASA = math.Max(0, w.NASA)
	w.Duplication = math.Max(0, w.Duplication)

	total := w.Connascence + w.NASA + w.Duplication
	if total <= 0 {
		return domain.ScoreWeights{Connascence: 1.0 / 3, NASA: 1.0 / 3, Duplication: 1.0 / 3}
	}
	return domain.ScoreWeights{
		Connascence: w.Connascence / total,
		NASA:        w.NASA / total,
		Duplication: w.Duplication / total,
	}
}

func (s *Scorer) qualityScore(index, nasa, dup float64, w domain.ScoreWeights) float64 {
	// weighted deficit form: a perfect input scores exactly 1
	deficit := (1-s.ConnascenceScore(index))*w.Connascence + (1-nasa)*w.NASA + (1-dup)*w.Duplication
	return clamp01(1 - deficit)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// sumSorted adds the terms in ascending order
func sumSorted(terms []float64) float64 {
	sort.Float64s(terms)
	total := 0.0
	for _, t := range terms {
		total += t
	}
	return total
}
