package trend

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/connscan/domain"
)

func snapshot(i int, quality float64, violations int) domain.MetricsSnapshot {
	return domain.MetricsSnapshot{
		ID:              fmt.Sprintf("snap-%02d", i),
		Timestamp:       time.Date(2026, 3, 1, 0, i, 0, 0, time.UTC),
		QualityScore:    quality,
		TotalViolations: violations,
		BySeverity:      map[domain.Severity]int{domain.SeverityHigh: violations},
		ByType:          map[domain.ConnascenceType]int{domain.CoMeaning: violations},
		Weights:         domain.ScoreWeights{Connascence: 0.4, NASA: 0.3, Duplication: 0.3},
	}
}

func TestTrackerHistoryBounding(t *testing.T) {
	tr := NewTracker(20, 5)
	for i := 0; i < 30; i++ {
		tr.Append(snapshot(i, 0.5, i))
	}

	history := tr.History()
	require.Len(t, history, 20)
	assert.Equal(t, "snap-10", history[0].ID)
	assert.Equal(t, "snap-29", history[19].ID)
}

func TestTrackerStates(t *testing.T) {
	tr := NewTracker(0, 0)
	assert.Equal(t, 20, tr.Capacity())
	assert.Equal(t, StateNoHistory, tr.State())

	_, err := tr.SetBaseline()
	assert.ErrorIs(t, err, ErrNoHistory)
	assert.Equal(t, domain.BaselineNone, tr.BaselineComparison().Status)

	tr.Append(snapshot(1, 0.7, 10))
	assert.Equal(t, StateHasHistory, tr.State())
	assert.Equal(t, domain.BaselineNone, tr.BaselineComparison().Status)

	b, err := tr.SetBaseline()
	require.NoError(t, err)
	assert.Equal(t, "snap-01", b.ID)
	assert.Equal(t, StateHasBaseline, tr.State())
	assert.Equal(t, "has_baseline", tr.State().String())

	// appending never moves the baseline
	tr.Append(snapshot(2, 0.9, 4))
	base, ok := tr.Baseline()
	require.True(t, ok)
	assert.Equal(t, "snap-01", base.ID)

	tr.Reset()
	assert.Equal(t, StateNoHistory, tr.State())
}

func TestTrackerReturnsCopies(t *testing.T) {
	tr := NewTracker(5, 5)
	tr.Append(snapshot(1, 0.5, 3))

	latest, ok := tr.Latest()
	require.True(t, ok)
	latest.BySeverity[domain.SeverityHigh] = 99

	again, _ := tr.Latest()
	assert.Equal(t, 3, again.BySeverity[domain.SeverityHigh])
}

func TestBaselineComparison(t *testing.T) {
	tests := []struct {
		current float64
		want    string
	}{
		{0.75, domain.BaselineSignificantlyImproved},
		{0.60, domain.BaselineImproved},
		{0.51, domain.BaselineStable},
		{0.49, domain.BaselineStable},
		{0.45, domain.BaselineDegraded},
		{0.30, domain.BaselineSignificantlyDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			tr := NewTracker(5, 5)
			tr.Append(snapshot(1, 0.5, 10))
			_, err := tr.SetBaseline()
			require.NoError(t, err)
			tr.Append(snapshot(2, tt.current, 7))

			cmp := tr.BaselineComparison()
			assert.Equal(t, tt.want, cmp.Status)
			assert.InDelta(t, tt.current-0.5, cmp.QualityDelta, 1e-9)
			assert.Equal(t, -3, cmp.ViolationDelta)
			assert.Equal(t, 0.5, cmp.BaselineQuality)
		})
	}
}

func TestBandEdgesIgnoreFloatNoise(t *testing.T) {
	tests := []struct {
		baseline, current float64
		want              string
	}{
		{0.85, 0.87, domain.BaselineStable},
		{0.85, 0.83, domain.BaselineStable},
		{0.85, 0.95, domain.BaselineImproved},
		{0.85, 0.75, domain.BaselineDegraded},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f->%.2f", tt.baseline, tt.current), func(t *testing.T) {
			tr := NewTracker(5, 5)
			tr.Append(snapshot(1, tt.baseline, 10))
			_, err := tr.SetBaseline()
			require.NoError(t, err)
			tr.Append(snapshot(2, tt.current, 10))
			assert.Equal(t, tt.want, tr.BaselineComparison().Status)
		})
	}

	// 0.55 - 0.5 is slightly above 0.05 in float64
	tr := NewTracker(5, 5)
	tr.Append(snapshot(0, 0.5, 20))
	tr.Append(snapshot(1, 0.55, 20))
	assert.Equal(t, domain.TrendStable, tr.TrendAnalysis().QualityTrend)
}

func TestTrendAnalysis(t *testing.T) {
	tr := NewTracker(20, 5)
	tr.Append(snapshot(0, 0.5, 20))
	assert.Equal(t, domain.TrendInsufficientData, tr.TrendAnalysis().Status)

	tests := []struct {
		name       string
		quality    float64
		violations int
		overall    string
	}{
		{"excellent", 0.7, 10, domain.TrendExcellent},
		{"stable", 0.52, 22, domain.TrendStable},
		{"quality drop", 0.4, 20, domain.TrendNeedsAttention},
		{"more violations", 0.5, 30, domain.TrendNeedsAttention},
		{"mixed", 0.6, 20, domain.TrendMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(20, 5)
			tr.Append(snapshot(0, 0.5, 20))
			tr.Append(snapshot(1, tt.quality, tt.violations))
			assert.Equal(t, tt.overall, tr.TrendAnalysis().OverallTrend)
		})
	}
}

func TestTrendAnalysisUsesWindow(t *testing.T) {
	tr := NewTracker(20, 3)
	tr.Append(snapshot(0, 0.1, 100))
	tr.Append(snapshot(1, 0.8, 10))
	tr.Append(snapshot(2, 0.8, 10))
	tr.Append(snapshot(3, 0.81, 11))

	analysis := tr.TrendAnalysis()
	assert.Equal(t, 3, analysis.SnapshotsAnalyzed)
	assert.Equal(t, domain.TrendStable, analysis.QualityTrend)
	assert.Equal(t, 1, analysis.ViolationDelta)
}

func TestTrackerConcurrentAppends(t *testing.T) {
	tr := NewTracker(20, 5)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Append(snapshot(i, 0.5, i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, tr.Len())
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".connscan", "history.db")

	store, err := OpenStore(ctx, path, 3)
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, snapshot(i, 0.1*float64(i), i)))
	}

	history, err := store.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "snap-02", history[0].ID)
	assert.Equal(t, "snap-04", history[2].ID)
	assert.Equal(t, 4, history[2].BySeverity[domain.SeverityHigh])
	assert.Equal(t, 0.4, history[2].Weights.Connascence)
	assert.True(t, history[2].Timestamp.Equal(time.Date(2026, 3, 1, 0, 4, 0, 0, time.UTC)))

	_, ok, err := store.LoadBaseline(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveBaseline(ctx, history[1]))
	tracker, err := store.Load(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, tracker.Len())
	assert.Equal(t, StateHasBaseline, tracker.State())

	base, _ := tracker.Baseline()
	assert.Equal(t, "snap-03", base.ID)
	assert.Equal(t, domain.BaselineImproved, tracker.BaselineComparison().Status)
}

func TestStoreReopenKeepsHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := OpenStore(ctx, path, 20)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, snapshot(1, 0.9, 2)))
	require.NoError(t, store.Close())

	reopened, err := OpenStore(ctx, path, 20)
	require.NoError(t, err)
	defer reopened.Close()
	history, err := reopened.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 0.9, history[0].QualityScore)
}

func TestOpenStoreRejectsEmptyPath(t *testing.T) {
	_, err := OpenStore(context.Background(), "", 20)
	assert.Error(t, err)
}
