// Package metrics exports cycle counters in the Prometheus text format to a
// file picked up by the node exporter textfile collector. The watchdog has
// no listening socket, so nothing is served over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/remediation"
	"github.com/core-tools/hsu-watchdog/pkg/watchdog"
)

const namespace = "watchdog"

// Recorder implements watchdog.Observer
type Recorder struct {
	registry     *prometheus.Registry
	cycles       *prometheus.CounterVec
	remediations *prometheus.CounterVec
	duration     prometheus.Histogram
	signal       prometheus.Gauge
	lastCycle    prometheus.Gauge
	path         string
	logger       logging.Logger
}

// NewRecorder creates a recorder that rewrites path after every cycle.
// An empty path keeps the metrics in memory only.
func NewRecorder(path string, logger logging.Logger) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed probe cycles by outcome.",
		}, []string{"outcome"}),
		remediations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remediations_total",
			Help:      "Remediation commands run by action.",
		}, []string{"action"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Duration of the HTTPS probe.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		signal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_signal",
			Help:      "Character signal of the most recent successful probe.",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the most recent cycle finished.",
		}),
		path:   path,
		logger: logger,
	}

	r.registry.MustRegister(r.cycles, r.remediations, r.duration, r.signal, r.lastCycle)
	return r
}

// ObserveCycle records report and rewrites the text file
func (r *Recorder) ObserveCycle(report watchdog.CycleReport) {
	r.cycles.WithLabelValues(report.Outcome.Kind.String()).Inc()
	r.duration.Observe(report.Outcome.Duration.Seconds())
	if report.Outcome.Succeeded() {
		r.signal.Set(float64(report.Outcome.Signal))
	}
	if report.Action != remediation.ActionNone {
		r.remediations.WithLabelValues(report.Action.String()).Inc()
	}
	r.lastCycle.Set(float64(report.Started.Add(report.Duration).Unix()))

	if r.path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(r.path, r.registry); err != nil {
		r.logger.Warnf("Failed to write metrics file, path: %s, error: %v", r.path, err)
	}
}
