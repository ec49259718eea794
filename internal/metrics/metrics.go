package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_evaluations_total",
			Help: "Total order evaluations by outcome and risk level",
		},
		[]string{"result", "risk_level"},
	)

	evaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradegate_evaluation_duration_seconds",
			Help:    "End-to-end gate evaluation latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	ruleViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_rule_violations_total",
			Help: "Rule violations observed in verdicts",
		},
		[]string{"rule", "severity"},
	)

	emitDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_audit_emit_drops_total",
			Help: "Decision events dropped by the audit emitter",
		},
		[]string{"reason"},
	)

	upstreamFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradegate_upstream_failures_total",
			Help: "Account/limits provider failures (fail-closed denials)",
		},
		[]string{"upstream"},
	)
)

func init() {
	prometheus.MustRegister(evaluationsTotal)
	prometheus.MustRegister(evaluationDuration)
	prometheus.MustRegister(ruleViolationsTotal)
	prometheus.MustRegister(emitDropsTotal)
	prometheus.MustRegister(upstreamFailuresTotal)
}

// Handler returns the Prometheus metrics endpoint handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEvaluation records one gate decision
func RecordEvaluation(allowed bool, riskLevel string, elapsed time.Duration) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	evaluationsTotal.WithLabelValues(result, riskLevel).Inc()
	evaluationDuration.Observe(elapsed.Seconds())
}

// RecordViolation records one rule violation from a verdict
func RecordViolation(rule, severity string) {
	ruleViolationsTotal.WithLabelValues(rule, severity).Inc()
}

// RecordEmitDrop records a dropped audit event
func RecordEmitDrop(reason string) {
	emitDropsTotal.WithLabelValues(reason).Inc()
}

// RecordUpstreamFailure records a provider failure
func RecordUpstreamFailure(upstream string) {
	upstreamFailuresTotal.WithLabelValues(upstream).Inc()
}
