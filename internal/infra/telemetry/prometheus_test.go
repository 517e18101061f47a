package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpdrift/internal/domain"
)

func TestNewPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	assert.NotNil(t, m)
	assert.NotNil(t, m.toolCallDuration)
	assert.NotNil(t, m.sessionsTotal)
	assert.NotNil(t, m.ledgerSubstitutions)
	assert.NotNil(t, m.driftFindings)
}

func TestPrometheusMetrics_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewPrometheusMetrics(registry)
	m.ObserveToolCall("echo", 10*time.Millisecond, false)
	m.ObserveToolCall("echo", 20*time.Millisecond, true)
	m.ObserveSession(domain.ModeFull, nil)
	m.ObserveLedgerSubstitutions(3)
	m.ObserveDiff(domain.Diff{
		Severity: domain.SeverityBreaking,
		Counts: map[domain.Severity]int{
			domain.SeverityBreaking: 1,
			domain.SeverityInfo:     2,
		},
	})

	metrics, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(metrics))
	for _, metric := range metrics {
		names = append(names, metric.GetName())
	}

	assert.Contains(t, names, "mcpdrift_tool_call_duration_seconds")
	assert.Contains(t, names, "mcpdrift_sessions_total")
	assert.Contains(t, names, "mcpdrift_ledger_substitutions_total")
	assert.Contains(t, names, "mcpdrift_drift_findings_total")
}
