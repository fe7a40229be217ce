package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/config"
	"github.com/ludo-technologies/connscan/internal/trend"
)

// TrendUseCase reads and writes the persisted snapshot history
type TrendUseCase struct {
	historyPath string
	capacity    int
	window      int
	logger      *slog.Logger
}

// NewTrendUseCase creates a trend use case over the history database at path
func NewTrendUseCase(historyPath string, capacity, window int, logger *slog.Logger) *TrendUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrendUseCase{historyPath: historyPath, capacity: capacity, window: window, logger: logger}
}

// NewTrendUseCaseFromConfig creates a trend use case from the trend settings
func NewTrendUseCaseFromConfig(cfg *config.Config, logger *slog.Logger) *TrendUseCase {
	return NewTrendUseCase(cfg.Trend.HistoryPath, cfg.Trend.HistorySize, cfg.Trend.Window, logger)
}

// HistoryPath returns the database location
func (uc *TrendUseCase) HistoryPath() string { return uc.historyPath }

func (uc *TrendUseCase) withStore(ctx context.Context, fn func(*trend.Store) error) error {
	store, err := trend.OpenStore(ctx, uc.historyPath, uc.capacity)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// Record appends a snapshot to the history
func (uc *TrendUseCase) Record(ctx context.Context, snap domain.MetricsSnapshot) error {
	return uc.withStore(ctx, func(s *trend.Store) error {
		if err := s.Append(ctx, snap); err != nil {
			return err
		}
		uc.logger.Debug("snapshot recorded", "id", snap.ID, "path", uc.historyPath)
		return nil
	})
}

// Report returns the trend analysis and baseline comparison. A missing
// history database is reported as an empty history, not created.
func (uc *TrendUseCase) Report(ctx context.Context) (*domain.TrendReport, error) {
	if _, err := os.Stat(uc.historyPath); errors.Is(err, fs.ErrNotExist) {
		return reportOf(trend.NewTracker(uc.capacity, uc.window)), nil
	}

	var report *domain.TrendReport
	err := uc.withStore(ctx, func(s *trend.Store) error {
		tracker, err := s.Load(ctx, uc.window)
		if err != nil {
			return err
		}
		report = reportOf(tracker)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return report, nil
}

// SetBaseline marks the latest recorded snapshot as the baseline
func (uc *TrendUseCase) SetBaseline(ctx context.Context) (domain.MetricsSnapshot, error) {
	if _, err := os.Stat(uc.historyPath); errors.Is(err, fs.ErrNotExist) {
		return domain.MetricsSnapshot{}, trend.ErrNoHistory
	}

	var baseline domain.MetricsSnapshot
	err := uc.withStore(ctx, func(s *trend.Store) error {
		tracker, err := s.Load(ctx, uc.window)
		if err != nil {
			return err
		}
		if baseline, err = tracker.SetBaseline(); err != nil {
			return err
		}
		return s.SaveBaseline(ctx, baseline)
	})
	if err != nil {
		return domain.MetricsSnapshot{}, err
	}
	uc.logger.Info("baseline set", "snapshot", baseline.ID, "quality", baseline.QualityScore)
	return baseline, nil
}

func reportOf(t *trend.Tracker) *domain.TrendReport {
	return &domain.TrendReport{
		State:    t.State().String(),
		Trend:    t.TrendAnalysis(),
		Baseline: t.BaselineComparison(),
		History:  t.History(),
	}
}
