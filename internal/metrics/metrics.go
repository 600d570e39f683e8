// Package metrics exposes Prometheus collectors for transcription runs.
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scribe"

// Metrics groups the collectors of one process.
type Metrics struct {
	runs          *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	windows       *prometheus.CounterVec
	credits       *prometheus.CounterVec
	retries       *prometheus.CounterVec
	notifyDropped prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: status (completed/failed), reason (empty on success)
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Transcription runs that reached a terminal status",
			},
			[]string{"status", "reason"},
		),
		// Labels: step (probe/price/window/aggregate/...), result (ok/error)
		stepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Workflow step duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"step", "result"},
		),
		windows: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "windows_total",
				Help:      "Windows transcribed, by result",
			},
			[]string{"result"},
		),
		credits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credits_charged_total",
				Help:      "Credits debited, by model tier",
			},
			[]string{"model"},
		),
		// Labels: operation (extract/transcribe)
		retries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Retried provider calls",
			},
			[]string{"operation"},
		),
		notifyDropped: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_dropped_total",
				Help:      "Notifications dropped because the queue was full or closed",
			},
		),
	}
}

// RecordRun counts a terminal run.
func (m *Metrics) RecordRun(status, reason string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status, reason).Inc()
}

// ObserveStep records how long a step took.
func (m *Metrics) ObserveStep(step string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step, result(err)).Observe(d.Seconds())
}

// RecordWindow counts one window outcome.
func (m *Metrics) RecordWindow(err error) {
	if m == nil {
		return
	}
	m.windows.WithLabelValues(result(err)).Inc()
}

// AddCredits counts credits charged for a model tier.
func (m *Metrics) AddCredits(model string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.credits.WithLabelValues(model).Add(float64(amount))
}

// RecordRetry counts one retry of operation.
func (m *Metrics) RecordRetry(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}

// NotificationDropped counts one dropped notification.
func (m *Metrics) NotificationDropped() {
	if m == nil {
		return
	}
	m.notifyDropped.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
