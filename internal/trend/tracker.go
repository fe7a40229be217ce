package trend

import (
	"errors"
	"math"
	"sync"

	"github.com/ludo-technologies/connscan/domain"
)

const (
	significantQualityDelta = 0.1
	qualityDelta            = 0.02
	trendQualityDelta       = 0.05
	trendViolationDelta     = 5

	// Deltas are rounded to this precision before they meet a band edge
	deltaPrecision = 1e9
)

// State is the lifecycle state of a Tracker
type State int

const (
	StateNoHistory State = iota
	StateHasHistory
	StateHasBaseline
)

func (s State) String() string {
	switch s {
	case StateNoHistory:
		return "no_history"
	case StateHasHistory:
		return "has_history"
	case StateHasBaseline:
		return "has_baseline"
	}
	return "unknown"
}

// Tracker keeps a bounded FIFO of snapshots plus an optional baseline.
// All methods are safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	capacity int
	window   int
	history  []domain.MetricsSnapshot
	baseline *domain.MetricsSnapshot
}

// NewTracker creates a tracker; non-positive values fall back to 20 snapshots
// and a trend window of 5
func NewTracker(capacity, window int) *Tracker {
	if capacity < 1 {
		capacity = 20
	}
	if window < 2 {
		window = 5
	}
	return &Tracker{capacity: capacity, window: window}
}

// Capacity returns the maximum history length
func (t *Tracker) Capacity() int { return t.capacity }

// Append records a snapshot, evicting the oldest entries beyond capacity
func (t *Tracker) Append(s domain.MetricsSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, s.Clone())
	if over := len(t.history) - t.capacity; over > 0 {
		t.history = append([]domain.MetricsSnapshot(nil), t.history[over:]...)
	}
}

// History returns copies of the recorded snapshots, oldest first
func (t *Tracker) History() []domain.MetricsSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.MetricsSnapshot, len(t.history))
	for i, s := range t.history {
		out[i] = s.Clone()
	}
	return out
}

// Latest returns the most recent snapshot
func (t *Tracker) Latest() (domain.MetricsSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.history) == 0 {
		return domain.MetricsSnapshot{}, false
	}
	return t.history[len(t.history)-1].Clone(), true
}

// Len returns the history length
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.history)
}

// State reports the lifecycle state
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case len(t.history) == 0:
		return StateNoHistory
	case t.baseline == nil:
		return StateHasHistory
	}
	return StateHasBaseline
}

// ErrNoHistory is returned by SetBaseline when nothing has been recorded
var ErrNoHistory = errors.New("no snapshot history: run an analysis first")

// SetBaseline copies the latest snapshot as the baseline
func (t *Tracker) SetBaseline() (domain.MetricsSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.history) == 0 {
		return domain.MetricsSnapshot{}, ErrNoHistory
	}
	b := t.history[len(t.history)-1].Clone()
	t.baseline = &b
	return b.Clone(), nil
}

// RestoreBaseline installs a previously persisted baseline
func (t *Tracker) RestoreBaseline(s domain.MetricsSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := s.Clone()
	t.baseline = &b
}

// Baseline returns the baseline, if set
func (t *Tracker) Baseline() (domain.MetricsSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.baseline == nil {
		return domain.MetricsSnapshot{}, false
	}
	return t.baseline.Clone(), true
}

// Reset drops history and baseline
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = nil
	t.baseline = nil
}

// BaselineComparison compares the latest snapshot against the baseline.
// Without a baseline the status is no_baseline.
func (t *Tracker) BaselineComparison() domain.BaselineComparison {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.baseline == nil || len(t.history) == 0 {
		return domain.BaselineComparison{Status: domain.BaselineNone}
	}
	current := t.history[len(t.history)-1]
	delta := roundDelta(current.QualityScore - t.baseline.QualityScore)
	return domain.BaselineComparison{
		Status:          classifyBaseline(delta),
		BaselineQuality: t.baseline.QualityScore,
		CurrentQuality:  current.QualityScore,
		QualityDelta:    delta,
		ViolationDelta:  current.TotalViolations - t.baseline.TotalViolations,
		BaselineTakenAt: t.baseline.Timestamp,
	}
}

// roundDelta drops float noise so 0.87-0.85 lands on the 0.02 edge
func roundDelta(d float64) float64 {
	return math.Round(d*deltaPrecision) / deltaPrecision
}

func classifyBaseline(delta float64) string {
	switch {
	case delta > significantQualityDelta:
		return domain.BaselineSignificantlyImproved
	case delta > qualityDelta:
		return domain.BaselineImproved
	case delta >= -qualityDelta:
		return domain.BaselineStable
	case delta >= -significantQualityDelta:
		return domain.BaselineDegraded
	}
	return domain.BaselineSignificantlyDegraded
}

// TrendAnalysis compares the first and last snapshot of the trend window
func (t *Tracker) TrendAnalysis() domain.TrendAnalysis {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.history) < 2 {
		return domain.TrendAnalysis{
			Status:            domain.TrendInsufficientData,
			SnapshotsAnalyzed: len(t.history),
		}
	}

	recent := t.history
	if len(recent) > t.window {
		recent = recent[len(recent)-t.window:]
	}
	first, last := recent[0], recent[len(recent)-1]

	qDelta := roundDelta(last.QualityScore - first.QualityScore)
	vDelta := last.TotalViolations - first.TotalViolations

	quality := domain.TrendStable
	switch {
	case qDelta > trendQualityDelta:
		quality = domain.TrendImproving
	case qDelta < -trendQualityDelta:
		quality = domain.TrendDegrading
	}
	violations := domain.TrendStable
	switch {
	case vDelta > trendViolationDelta:
		violations = domain.TrendDegrading
	case vDelta < -trendViolationDelta:
		violations = domain.TrendImproving
	}

	return domain.TrendAnalysis{
		Status:            "ok",
		QualityTrend:      quality,
		ViolationTrend:    violations,
		OverallTrend:      overallTrend(quality, violations),
		QualityDelta:      qDelta,
		ViolationDelta:    vDelta,
		SnapshotsAnalyzed: len(recent),
	}
}

func overallTrend(quality, violations string) string {
	switch {
	case quality == domain.TrendImproving && violations == domain.TrendImproving:
		return domain.TrendExcellent
	case quality == domain.TrendStable && violations == domain.TrendStable:
		return domain.TrendStable
	case quality == domain.TrendDegrading || violations == domain.TrendDegrading:
		return domain.TrendNeedsAttention
	}
	return domain.TrendMixed
}
