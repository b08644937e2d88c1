// Package metrics records per-run pipeline counters and stage timings and
// exports them in the Prometheus text format for node-exporter's textfile
// collector.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the metrics of one CLI invocation. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry      *prometheus.Registry
	files         *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	lastRun       *prometheus.GaugeVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxnote_files_total",
			Help: "Files handled per run and outcome",
		}, []string{"run", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voxnote_stage_duration_seconds",
			Help:    "Wall time of one pipeline stage for one file",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 14), // 250ms to ~68 minutes
		}, []string{"stage"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voxnote_last_run_timestamp_seconds",
			Help: "Unix time at which a run last finished",
		}, []string{"run"}),
	}
	r.registry.MustRegister(r.files, r.stageDuration, r.lastRun)
	return r
}

// File counts one file outcome ("completed", "skipped", "error", ...).
func (r *Recorder) File(run, outcome string) {
	if r == nil {
		return
	}
	r.files.WithLabelValues(run, outcome).Inc()
}

// Stage observes how long a stage took.
func (r *Recorder) Stage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RunFinished stamps the completion time of run.
func (r *Recorder) RunFinished(run string, at time.Time) {
	if r == nil {
		return
	}
	r.lastRun.WithLabelValues(run).Set(float64(at.Unix()))
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically writes the current values to path. An empty path
// or nil recorder is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
