package trend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/ludo-technologies/connscan/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	taken_at TEXT NOT NULL,
	quality_score REAL NOT NULL,
	connascence_index REAL NOT NULL,
	nasa_compliance_score REAL NOT NULL,
	duplication_score REAL NOT NULL,
	total_violations INTEGER NOT NULL,
	files_analyzed INTEGER NOT NULL,
	cluster_count INTEGER NOT NULL,
	by_severity TEXT NOT NULL,
	by_type TEXT NOT NULL,
	weights TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS baseline (
	slot INTEGER PRIMARY KEY CHECK (slot = 1),
	snapshot TEXT NOT NULL,
	set_at TEXT NOT NULL
);
`

// Store persists snapshot history and the baseline in SQLite
type Store struct {
	db       *sql.DB
	path     string
	capacity int
}

// OpenStore opens (creating if needed) the history database at path
func OpenStore(ctx context.Context, path string, capacity int) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history path cannot be empty")
	}
	if capacity < 1 {
		capacity = 20
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db, path: path, capacity: capacity}, nil
}

// Path returns the database file path
func (s *Store) Path() string { return s.path }

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts a snapshot and prunes rows beyond the capacity
func (s *Store) Append(ctx context.Context, snap domain.MetricsSnapshot) error {
	bySeverity, err := json.Marshal(snap.BySeverity)
	if err != nil {
		return fmt.Errorf("failed to encode severity counts: %w", err)
	}
	byType, err := json.Marshal(snap.ByType)
	if err != nil {
		return fmt.Errorf("failed to encode type counts: %w", err)
	}
	weights, err := json.Marshal(snap.Weights)
	if err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, taken_at, quality_score, connascence_index, nasa_compliance_score,
			duplication_score, total_violations, files_analyzed, cluster_count, by_severity, by_type, weights)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.Timestamp.UTC().Format(time.RFC3339Nano), snap.QualityScore, snap.ConnascenceIndex,
		snap.NASAComplianceScore, snap.DuplicationScore, snap.TotalViolations, snap.FilesAnalyzed,
		snap.ClusterCount, string(bySeverity), string(byType), string(weights))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM snapshots WHERE seq NOT IN (
			SELECT seq FROM snapshots ORDER BY seq DESC LIMIT ?
		)
	`, s.capacity)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return tx.Commit()
}

// History returns the stored snapshots, oldest first
func (s *Store) History(ctx context.Context) ([]domain.MetricsSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, taken_at, quality_score, connascence_index, nasa_compliance_score, duplication_score,
			total_violations, files_analyzed, cluster_count, by_severity, by_type, weights
		FROM snapshots ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricsSnapshot
	for rows.Next() {
		var (
			snap                       domain.MetricsSnapshot
			takenAt                    string
			bySeverity, byType, weight string
		)
		if err := rows.Scan(&snap.ID, &takenAt, &snap.QualityScore, &snap.ConnascenceIndex,
			&snap.NASAComplianceScore, &snap.DuplicationScore, &snap.TotalViolations,
			&snap.FilesAnalyzed, &snap.ClusterCount, &bySeverity, &byType, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if snap.Timestamp, err = time.Parse(time.RFC3339Nano, takenAt); err != nil {
			return nil, fmt.Errorf("snapshot %s: invalid timestamp: %w", snap.ID, err)
		}
		if err := decodeCounts(bySeverity, byType, weight, &snap); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", snap.ID, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func decodeCounts(bySeverity, byType, weights string, snap *domain.MetricsSnapshot) error {
	if err := json.Unmarshal([]byte(bySeverity), &snap.BySeverity); err != nil {
		return fmt.Errorf("invalid severity counts: %w", err)
	}
	if err := json.Unmarshal([]byte(byType), &snap.ByType); err != nil {
		return fmt.Errorf("invalid type counts: %w", err)
	}
	if err := json.Unmarshal([]byte(weights), &snap.Weights); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}
	return nil
}

// SaveBaseline overwrites the stored baseline
func (s *Store) SaveBaseline(ctx context.Context, snap domain.MetricsSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO baseline (slot, snapshot, set_at) VALUES (1, ?, ?)
	`, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save baseline: %w", err)
	}
	return nil
}

// LoadBaseline returns the stored baseline, if any
func (s *Store) LoadBaseline(ctx context.Context) (domain.MetricsSnapshot, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM baseline WHERE slot = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MetricsSnapshot{}, false, nil
	}
	if err != nil {
		return domain.MetricsSnapshot{}, false, fmt.Errorf("failed to read baseline: %w", err)
	}
	var snap domain.MetricsSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return domain.MetricsSnapshot{}, false, fmt.Errorf("invalid baseline: %w", err)
	}
	return snap, true, nil
}

// Load restores the cap-bounded history and the baseline into a new Tracker
func (s *Store) Load(ctx context.Context, window int) (*Tracker, error) {
	history, err := s.History(ctx)
	if err != nil {
		return nil, err
	}
	tracker := NewTracker(s.capacity, window)
	for _, snap := range history {
		tracker.Append(snap)
	}
	baseline, ok, err := s.LoadBaseline(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		tracker.RestoreBaseline(baseline)
	}
	return tracker, nil
}
