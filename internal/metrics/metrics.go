// Package metrics holds the Prometheus collectors shared by the decision core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// #region collectors

var (
	// oracleCalls counts oracle invocations by task kind and outcome
	// ("ok", "transport", "schema").
	oracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "counselor_oracle_calls_total",
		Help: "Oracle invocations by task kind and outcome",
	}, []string{"task", "outcome"})

	// oracleLatency tracks end-to-end oracle latency including retries.
	oracleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "counselor_oracle_duration_seconds",
		Help:    "Oracle invocation duration in seconds, retries included",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	}, []string{"task"})

	interviewSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "counselor_interview_steps_total",
		Help: "Interview steps by termination policy reason",
	}, []string{"reason"})

	shortlistOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "counselor_shortlist_outcomes_total",
		Help: "Shortlist requests by outcome",
	}, []string{"outcome"})

	distressAssessments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "counselor_distress_assessments_total",
		Help: "Distress assessments by level and source",
	}, []string{"level", "source"})

	hookFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "counselor_hook_failures_total",
		Help: "Post-step hook failures by event kind",
	}, []string{"kind"})
)

// #endregion collectors

// #region recorders

// ObserveOracle records one oracle invocation.
func ObserveOracle(task, outcome string, elapsed time.Duration) {
	oracleCalls.WithLabelValues(task, outcome).Inc()
	oracleLatency.WithLabelValues(task).Observe(elapsed.Seconds())
}

// InterviewStep records the policy reason behind one interview step.
func InterviewStep(reason string) {
	interviewSteps.WithLabelValues(reason).Inc()
}

// ShortlistOutcome records the outcome of one shortlist request.
func ShortlistOutcome(outcome string) {
	shortlistOutcomes.WithLabelValues(outcome).Inc()
}

// DistressAssessment records one message classification.
func DistressAssessment(level, source string) {
	distressAssessments.WithLabelValues(level, source).Inc()
}

// HookFailure records a failed post-step hook.
func HookFailure(kind string) {
	hookFailures.WithLabelValues(kind).Inc()
}

// #endregion recorders
