// Package metrics exposes Prometheus instrumentation for the orchestrator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
)

const (
	MetricsNamespace = "pwt"
)

var (
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	workItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "work_items_total",
		Help:      "Work items queued per run",
	}, []string{
		"run_id",
	})

	resultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "results_total",
		Help:      "Recorded work item results",
	}, []string{
		"run_id",
		"status",
	})

	degradedResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "degraded_results_total",
		Help:      "Synthesized results from disconnects or deadline expiry",
	}, []string{
		"run_id",
	})

	spawnFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "worker_spawn_failures_total",
		Help:      "Worker slots dropped because the ready handshake failed",
	})

	consolidatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "consolidated_results_total",
		Help:      "Consolidated scenario-outline results published",
	}, []string{
		"run_id",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of orchestrator runs",
	}, []string{
		"run_id",
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall clock duration of orchestrator runs",
	}, []string{
		"run_id",
	})
)

func RecordError(error string) {
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label.
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	RecordError(label + "." + err.Error())
}

func RecordWorkItems(runID string, count int) {
	workItemsTotal.WithLabelValues(runID).Add(float64(count))
}

func RecordResult(runID string, status types.TestStatus) {
	resultsTotal.WithLabelValues(runID, string(status)).Inc()
}

func RecordDegradedResult(runID string) {
	degradedResultsTotal.WithLabelValues(runID).Inc()
}

func RecordSpawnFailure() {
	spawnFailuresTotal.Inc()
}

func RecordConsolidated(runID string) {
	consolidatedTotal.WithLabelValues(runID).Inc()
}

// RecordRun emits the per-run summary gauges.
func RecordRun(runID string, result string, duration time.Duration) {
	runResults.WithLabelValues(runID, result).Set(1)
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}
