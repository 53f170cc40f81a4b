// internal/metrics/metrics.go

// Package metrics exposes orchestration metrics to Prometheus. The
// Sink translates orchestration events into instrument updates; serving
// the /metrics endpoint is the caller's concern.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus instruments for the orchestration core.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	RunIterations *prometheus.HistogramVec

	StepsTotal   *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec

	RetryAttemptsTotal      *prometheus.CounterVec
	BreakerTransitionsTotal *prometheus.CounterVec
	RateLimitedTotal        *prometheus.CounterVec

	TasksTotal    *prometheus.CounterVec
	TasksInFlight prometheus.Gauge
}

// NewMetrics creates and registers the instruments on the default
// registry. sync.Once guards registration so repeated calls cannot
// panic with duplicate collectors.
//
// All metrics are prefixed with "ensemble_":
//   - ensemble_runs_total{workflow,result} - Completed runs by outcome
//   - ensemble_run_duration_seconds{workflow} - Run wall-clock time
//   - ensemble_run_iterations{workflow} - Iterations used per run
//   - ensemble_steps_total{agent,role,result} - Completed steps by outcome
//   - ensemble_step_duration_seconds{agent,role} - Step execution time
//   - ensemble_retry_attempts_total{strategy} - Retry attempts by strategy
//   - ensemble_breaker_transitions_total{name,state} - Breaker state changes
//   - ensemble_rate_limited_total{key} - Rejected submissions per bucket
//   - ensemble_batch_tasks_total{status} - Finished batch tasks by status
//   - ensemble_batch_tasks_in_flight - Batch tasks currently running
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ensemble_runs_total",
					Help: "Total number of completed runs",
				},
				[]string{"workflow", "result"},
			),

			RunDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ensemble_run_duration_seconds",
					Help:    "Wall-clock duration of runs in seconds",
					Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
				},
				[]string{"workflow"},
			),

			RunIterations: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ensemble_run_iterations",
					Help:    "Pipeline iterations used per run",
					Buckets: prometheus.LinearBuckets(1, 1, 10),
				},
				[]string{"workflow"},
			),

			StepsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ensemble_steps_total",
					Help: "Total number of completed workflow steps",
				},
				[]string{"agent", "role", "result"},
			),

			StepDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ensemble_step_duration_seconds",
					Help:    "Duration of workflow steps in seconds",
					Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
				},
				[]string{"agent", "role"},
			),

			RetryAttemptsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ensemble_retry_attempts_total",
					Help: "Total number of retry attempts",
				},
				[]string{"strategy"},
			),

			BreakerTransitionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ensemble_breaker_transitions_total",
					Help: "Total number of circuit breaker state transitions",
				},
				[]string{"name", "state"},
			),

			RateLimitedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ensemble_rate_limited_total",
					Help: "Total number of rate-limited submissions",
				},
				[]string{"key"},
			),

			TasksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ensemble_batch_tasks_total",
					Help: "Total number of finished batch tasks",
				},
				[]string{"status"},
			),

			TasksInFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "ensemble_batch_tasks_in_flight",
					Help: "Number of batch tasks currently running",
				},
			),
		}
	})

	return globalMetrics
}

// RecordRun records a completed run with its outcome, duration, and
// iteration count.
func (m *Metrics) RecordRun(workflow string, success bool, seconds float64, iterations int) {
	m.RunsTotal.WithLabelValues(workflow, outcome(success)).Inc()
	m.RunDuration.WithLabelValues(workflow).Observe(seconds)
	m.RunIterations.WithLabelValues(workflow).Observe(float64(iterations))
}

// RecordStep records a completed workflow step.
func (m *Metrics) RecordStep(agent, role string, success bool, seconds float64) {
	m.StepsTotal.WithLabelValues(agent, role, outcome(success)).Inc()
	m.StepDuration.WithLabelValues(agent, role).Observe(seconds)
}

// RecordRetry records a retry attempt under the strategy it used.
func (m *Metrics) RecordRetry(strategy string) {
	m.RetryAttemptsTotal.WithLabelValues(strategy).Inc()
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(name, state string) {
	m.BreakerTransitionsTotal.WithLabelValues(name, state).Inc()
}

// RecordRateLimited records a rejected submission for a bucket key.
func (m *Metrics) RecordRateLimited(key string) {
	m.RateLimitedTotal.WithLabelValues(key).Inc()
}

// RecordTaskStarted marks one batch task in flight.
func (m *Metrics) RecordTaskStarted() {
	m.TasksInFlight.Inc()
}

// RecordTaskFinished records a finished batch task by status.
func (m *Metrics) RecordTaskFinished(status string) {
	m.TasksInFlight.Dec()
	m.TasksTotal.WithLabelValues(status).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
