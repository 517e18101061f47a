// Package telemetry exposes prometheus metrics for probe runs.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mcpdrift/internal/domain"
)

type PrometheusMetrics struct {
	toolCallDuration    *prometheus.HistogramVec
	sessionsTotal       *prometheus.CounterVec
	ledgerSubstitutions prometheus.Counter
	driftFindings       *prometheus.CounterVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		toolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpdrift_tool_call_duration_seconds",
				Help:    "Duration of probed tool calls in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"tool", "status"},
		),
		sessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpdrift_sessions_total",
				Help: "Total number of completed probe sessions",
			},
			[]string{"mode", "status"},
		),
		ledgerSubstitutions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mcpdrift_ledger_substitutions_total",
				Help: "Total number of argument values substituted from the session ledger",
			},
		),
		driftFindings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpdrift_drift_findings_total",
				Help: "Total number of drift findings by severity",
			},
			[]string{"severity"},
		),
	}
}

func (p *PrometheusMetrics) ObserveToolCall(tool string, duration time.Duration, isError bool) {
	status := "success"
	if isError {
		status = "error"
	}
	p.toolCallDuration.WithLabelValues(tool, status).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveSession(mode string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.sessionsTotal.WithLabelValues(mode, status).Inc()
}

func (p *PrometheusMetrics) ObserveLedgerSubstitutions(count int) {
	if count > 0 {
		p.ledgerSubstitutions.Add(float64(count))
	}
}

func (p *PrometheusMetrics) ObserveDiff(diff domain.Diff) {
	for severity, count := range diff.Counts {
		p.driftFindings.WithLabelValues(string(severity)).Add(float64(count))
	}
}
