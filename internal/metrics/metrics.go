// Package metrics exposes Prometheus counters for the task engine.
package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	tasksCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_tasks_created_total",
			Help: "Total number of tasks created",
		},
		[]string{"kind"}, // primary, support
	)

	statusTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_status_transitions_total",
			Help: "Total number of task status transitions",
		},
		[]string{"from", "to"},
	)

	hoursLoggedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_hours_logged_total",
			Help: "Total hours recorded in task ledgers",
		},
	)

	supportSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_support_helpers_skipped_total",
			Help: "Helpers skipped during support-task fan-out",
		},
	)

	sweepRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_delayed_sweep_runs_total",
			Help: "Total number of delayed-task sweeps",
		},
	)

	sweepPromotedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_delayed_sweep_promoted_total",
			Help: "Total number of tasks promoted to Delayed",
		},
	)
)

var once sync.Once

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(tasksCreatedTotal)
	prometheus.MustRegister(statusTransitionsTotal)
	prometheus.MustRegister(hoursLoggedTotal)
	prometheus.MustRegister(supportSkippedTotal)
	prometheus.MustRegister(sweepRunsTotal)
	prometheus.MustRegister(sweepPromotedTotal)
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	once.Do(func() {
		// the default registry may already carry these
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
	return promhttp.Handler()
}

// RecordAPIRequest records one served request
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTaskCreated counts a created task; support tells fan-out tasks apart.
func RecordTaskCreated(support bool) {
	kind := "primary"
	if support {
		kind = "support"
	}
	tasksCreatedTotal.WithLabelValues(kind).Inc()
}

// RecordTransition counts a status change
func RecordTransition(from, to string) {
	statusTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordHoursLogged adds hours recorded against a ledger
func RecordHoursLogged(hours float64) {
	if hours > 0 {
		hoursLoggedTotal.Add(hours)
	}
}

// RecordSupportSkipped counts helpers that did not get a support task
func RecordSupportSkipped(n int) {
	if n > 0 {
		supportSkippedTotal.Add(float64(n))
	}
}

// RecordSweep counts one sweep and the tasks it promoted
func RecordSweep(promoted int) {
	sweepRunsTotal.Inc()
	if promoted > 0 {
		sweepPromotedTotal.Add(float64(promoted))
	}
}
