package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"examtt/internal/metrics"
)

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("not-a-level")
	require.Error(t, err)
}

func TestNewLoggerAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		log, err := NewLogger(level)
		require.NoError(t, err)
		require.NotNil(t, log)
	}
}

func TestMetricsObserveUpdatesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.Observe(metrics.PerformanceMetrics{
		Phase1Runtime:        2 * time.Second,
		Phase2Runtime:        3 * time.Second,
		TotalRuntime:         5 * time.Second,
		GenerationsToBest:    4,
		TotalGenerations:     10,
		ConvergenceStability: 0.75,
		InitialQuality:       10,
		FinalQuality:         15,
	})

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64, len(families))
	for _, f := range families {
		values[f.GetName()] = f.GetMetric()[0].GetGauge().GetValue()
	}
	require.InDelta(t, 5.0, values["examtt_orchestrator_total_runtime_seconds"], 0.001)
	require.InDelta(t, 0.75, values["examtt_orchestrator_convergence_stability"], 0.001)
	require.InDelta(t, 15.0, values["examtt_orchestrator_final_quality"], 0.001)
}

func TestNewMetricsRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	require.Error(t, err)
}
