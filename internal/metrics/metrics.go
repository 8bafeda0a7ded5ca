// Package metrics exposes prometheus counters for the scheduled tasks.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "channelgate"

var (
	taskRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "task_runs_total",
			Help:      "Total task executions by outcome",
		},
		[]string{"task", "outcome"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "task_duration_seconds",
			Help:      "Task execution time",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"task"},
	)

	itemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "items_processed_total",
			Help:      "Per-item outcomes inside task batches",
		},
		[]string{"task", "outcome"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Expiry notifications sent by window",
		},
		[]string{"window"},
	)
)

// RecordTaskRun records one task execution and its duration.
func RecordTaskRun(task, outcome string, duration time.Duration) {
	taskRuns.WithLabelValues(task, outcome).Inc()
	taskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// RecordItem records one per-item outcome inside a batch.
func RecordItem(task, outcome string) {
	itemsProcessed.WithLabelValues(task, outcome).Inc()
}

// RecordNotification records one delivered expiry notification.
func RecordNotification(window string) {
	notificationsSent.WithLabelValues(window).Inc()
}
