package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ludo-technologies/connscan/domain"
)

// MetricsExporter publishes snapshot scores as prometheus gauges. Each
// exporter owns its registry so repeated runs never collide.
type MetricsExporter struct {
	registry    *prometheus.Registry
	quality     prometheus.Gauge
	index       prometheus.Gauge
	nasa        prometheus.Gauge
	duplication prometheus.Gauge
	files       prometheus.Gauge
	clusters    prometheus.Gauge
	violations  *prometheus.GaugeVec
}

// NewMetricsExporter creates the gauges on a fresh registry
func NewMetricsExporter() *MetricsExporter {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "connscan", Name: name, Help: help})
	}
	e := &MetricsExporter{
		registry:    prometheus.NewRegistry(),
		quality:     gauge("quality_score", "Composite quality score between 0 and 1."),
		index:       gauge("connascence_index", "Weighted connascence index, unbounded above."),
		nasa:        gauge("nasa_compliance_score", "Safety rule compliance score between 0 and 1."),
		duplication: gauge("duplication_score", "Duplicate algorithm score between 0 and 1."),
		files:       gauge("files_analyzed", "Number of files analyzed."),
		clusters:    gauge("duplicate_clusters", "Number of duplicate algorithm clusters."),
		violations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "connscan",
			Name:      "violations",
			Help:      "Number of violations by severity.",
		}, []string{"severity"}),
	}
	e.registry.MustRegister(e.quality, e.index, e.nasa, e.duplication, e.files, e.clusters, e.violations)
	return e
}

// Registry exposes the underlying registry, e.g. for a scrape handler
func (e *MetricsExporter) Registry() *prometheus.Registry { return e.registry }

// Observe sets every gauge from the snapshot
func (e *MetricsExporter) Observe(snap domain.MetricsSnapshot) {
	e.quality.Set(snap.QualityScore)
	e.index.Set(snap.ConnascenceIndex)
	e.nasa.Set(snap.NASAComplianceScore)
	e.duplication.Set(snap.DuplicationScore)
	e.files.Set(float64(snap.FilesAnalyzed))
	e.clusters.Set(float64(snap.ClusterCount))
	for _, sev := range domain.AllSeverities {
		e.violations.WithLabelValues(string(sev)).Set(float64(snap.BySeverity[sev]))
	}
}

// WriteTextfile writes the gauges in the node-exporter textfile format
func (e *MetricsExporter) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	return nil
}

// ExportSnapshot observes the snapshot and writes it to path in one step
func ExportSnapshot(path string, snap domain.MetricsSnapshot) error {
	e := NewMetricsExporter()
	e.Observe(snap)
	return e.WriteTextfile(path)
}
