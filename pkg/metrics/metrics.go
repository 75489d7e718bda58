// Package metrics records build, phase and task timings as Prometheus metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task outcomes used as the "outcome" label
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomePanic   = "panic"
)

// Collector owns a private registry so several builds in one process do not clash
type Collector struct {
	registry *prometheus.Registry

	builds        *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	phaseDuration *prometheus.HistogramVec
	tasks         *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	taskMessages  *prometheus.CounterVec
}

// NewCollector creates a collector with all metrics registered
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		builds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phasebuild_builds_total",
			Help: "Builds run, by requested phase and result",
		}, []string{"phase", "result"}),
		buildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phasebuild_build_duration_seconds",
			Help:    "Wall time of a whole build",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"phase"}),
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phasebuild_phase_duration_seconds",
			Help:    "Wall time of a single phase",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"phase"}),
		tasks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phasebuild_tasks_total",
			Help: "Task invocations, by outcome",
		}, []string{"phase", "task", "outcome"}),
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phasebuild_task_duration_seconds",
			Help:    "Wall time of a single task invocation",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase", "task"}),
		taskMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phasebuild_task_messages_total",
			Help: "Messages reported by tasks, by level",
		}, []string{"task", "level"}),
	}
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// BuildFinished records a finished build
func (c *Collector) BuildFinished(phase string, duration time.Duration, err error) {
	result := OutcomeSuccess
	if err != nil {
		result = OutcomeError
	}
	c.builds.WithLabelValues(phase, result).Inc()
	c.buildDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// PhaseFinished records a finished phase
func (c *Collector) PhaseFinished(phase string, duration time.Duration) {
	c.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// TaskFinished records a finished task invocation
func (c *Collector) TaskFinished(phase, task, outcome string, duration time.Duration) {
	c.tasks.WithLabelValues(phase, task, outcome).Inc()
	c.taskDuration.WithLabelValues(phase, task).Observe(duration.Seconds())
}

// TaskMessage counts a message reported by a task
func (c *Collector) TaskMessage(task, level string) {
	c.taskMessages.WithLabelValues(task, level).Inc()
}

// WriteToTextfile writes every metric in the text exposition format,
// suitable for the node_exporter textfile collector
func (c *Collector) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
