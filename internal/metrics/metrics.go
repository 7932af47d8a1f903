// Package metrics records per-run Prometheus metrics and exports them in the
// node_exporter textfile format, since cback runs from cron and has no
// long-lived endpoint to scrape.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cback"

// Recorder owns a private registry so a run only exports its own series.
type Recorder struct {
	registry *prometheus.Registry

	ActionRuns     *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	HookRuns       *prometheus.CounterVec
	LastRun        prometheus.Gauge
	LastRunSuccess prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		// Labels: action, status (success, failure)
		ActionRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "action_runs_total",
				Help:      "Total number of action executions by outcome",
			},
			[]string{"action", "status"},
		),

		ActionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of action executions in seconds",
				Buckets:   []float64{1, 5, 30, 60, 300, 900, 1800, 3600, 7200, 14400},
			},
			[]string{"action"},
		),

		// Labels: phase (pre, post), status (success, failure)
		HookRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hook_runs_total",
				Help:      "Total number of hook executions by phase and outcome",
			},
			[]string{"phase", "status"},
		),

		LastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
		),

		LastRunSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_success",
				Help:      "Whether the last run succeeded (1) or failed (0)",
			},
		),
	}
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// ObserveAction records one action execution.
func (r *Recorder) ObserveAction(name string, elapsed time.Duration, ok bool) {
	r.ActionRuns.WithLabelValues(name, status(ok)).Inc()
	r.ActionDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ObserveHook records one hook execution.
func (r *Recorder) ObserveHook(phase string, ok bool) {
	r.HookRuns.WithLabelValues(phase, status(ok)).Inc()
}

// ObserveRun records the end of a run.
func (r *Recorder) ObserveRun(finished time.Time, ok bool) {
	r.LastRun.Set(float64(finished.Unix()))
	if ok {
		r.LastRunSuccess.Set(1)
	} else {
		r.LastRunSuccess.Set(0)
	}
}

// Gatherer exposes the private registry. WriteTextfile exports exactly
// what it gathers.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes every series to path. The write goes through a
// temporary file so node_exporter never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create textfile dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.Gatherer()); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
