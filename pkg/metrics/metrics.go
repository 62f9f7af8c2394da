// Package metrics provides Prometheus-based metrics for the configure pass.
// The process is one-shot, so instead of a scrape endpoint the recorder
// writes exposition-format text for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Recorder collects configure-pass metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	configureDuration prometheus.Gauge
	targetsTotal      *prometheus.GaugeVec
	actionsTotal      *prometheus.GaugeVec
	probeCacheHits    prometheus.Gauge
}

// NewRecorder creates a recorder with a private registry, so parallel
// configure passes in tests never collide on the default one.
func NewRecorder(project string) *Recorder {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"project": project}

	r := &Recorder{
		registry: registry,
		configureDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "halbuild_configure_duration_seconds",
			Help:        "Wall time of the last configure pass",
			ConstLabels: labels,
		}),
		targetsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "halbuild_targets_total",
			Help:        "Targets emitted by the last configure pass, by kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		actionsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "halbuild_actions_total",
			Help:        "Actions emitted by the last configure pass, by kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		probeCacheHits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "halbuild_probe_cache_hits_total",
			Help:        "Tool probes answered from the cache in the last pass",
			ConstLabels: labels,
		}),
	}

	registry.MustRegister(r.configureDuration, r.targetsTotal, r.actionsTotal, r.probeCacheHits)
	return r
}

// ObserveConfigure records the duration of the configure pass.
func (r *Recorder) ObserveConfigure(duration time.Duration) {
	r.configureDuration.Set(duration.Seconds())
}

// CountTarget records one emitted target of the given kind.
func (r *Recorder) CountTarget(kind string) {
	r.targetsTotal.WithLabelValues(kind).Inc()
}

// CountAction records one emitted action of the given kind.
func (r *Recorder) CountAction(kind string) {
	r.actionsTotal.WithLabelValues(kind).Inc()
}

// SetProbeCacheHits records how many probes the cache answered.
func (r *Recorder) SetProbeCacheHits(hits int) {
	r.probeCacheHits.Set(float64(hits))
}

// WriteTextfile writes the collected metrics in Prometheus exposition
// format, atomically (write-then-rename) so the collector never reads a
// partial file.
func (r *Recorder) WriteTextfile(path string) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".halbuild-metrics-*")
	if err != nil {
		return fmt.Errorf("failed to create metrics tempfile: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(tmp, family); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close metrics tempfile: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to publish metrics file: %w", err)
	}
	return nil
}
