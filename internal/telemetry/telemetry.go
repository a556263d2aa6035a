// Package telemetry wires structured logging and Prometheus metrics for a
// schedule-session run. It has no teacher-file equivalent (the teacher logs
// with fmt.Println/log.Fatalf from a throwaway CLI driver); this package
// follows the rest of the pack's services idiom instead — a zap.Logger
// built from a parsed level, and a set of Prometheus gauges registered
// against an injected Registerer the way the pack's controller examples
// register their metrics in an init() against a package-level registry.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"examtt/internal/metrics"
)

// NewLogger builds a zap.Logger at the named level ("debug", "info",
// "warn", "error"), matching spec.md §6.5's --log-level flag.
func NewLogger(level string) (*zap.Logger, error) {
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("telemetry: invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

// Metrics exposes internal/metrics.PerformanceMetrics as Prometheus gauges,
// one per run's observed solve. Register once per process; Observe may be
// called repeatedly as new sessions complete.
type Metrics struct {
	phase1Runtime        prometheus.Gauge
	phase2Runtime        prometheus.Gauge
	totalRuntime         prometheus.Gauge
	generationsToBest    prometheus.Gauge
	totalGenerations     prometheus.Gauge
	convergenceStability prometheus.Gauge
	initialQuality       prometheus.Gauge
	finalQuality         prometheus.Gauge
}

// NewMetrics builds and registers the gauge set against reg. Use
// prometheus.NewRegistry() per test or long-lived server instance; use
// prometheus.DefaultRegisterer at the cmd/schedule-session boundary.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		phase1Runtime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "examtt", Subsystem: "orchestrator", Name: "phase1_runtime_seconds",
			Help: "Wall-clock time spent in phase 1 (feasibility solve).",
		}),
		phase2Runtime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "examtt", Subsystem: "orchestrator", Name: "phase2_runtime_seconds",
			Help: "Wall-clock time spent in phase 2 (ordering search).",
		}),
		totalRuntime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "examtt", Subsystem: "orchestrator", Name: "total_runtime_seconds",
			Help: "Total wall-clock time for the most recent run.",
		}),
		generationsToBest: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "examtt", Subsystem: "orchestrator", Name: "generations_to_best",
			Help: "GA generation index at which the best outcome was observed.",
		}),
		totalGenerations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "examtt", Subsystem: "orchestrator", Name: "total_generations",
			Help: "Total GA generations run in phase 2.",
		}),
		convergenceStability: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "examtt", Subsystem: "orchestrator", Name: "convergence_stability",
			Help: "1 minus the final generation's score variance divided by its absolute best score, floored at 0.",
		}),
		initialQuality: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "examtt", Subsystem: "orchestrator", Name: "initial_quality",
			Help: "Phase-1 incumbent's objective value.",
		}),
		finalQuality: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "examtt", Subsystem: "orchestrator", Name: "final_quality",
			Help: "Best objective value observed across both phases.",
		}),
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.phase1Runtime, m.phase2Runtime, m.totalRuntime,
		m.generationsToBest, m.totalGenerations, m.convergenceStability,
		m.initialQuality, m.finalQuality,
	}
}

// Observe records one run's performance snapshot.
func (m *Metrics) Observe(p metrics.PerformanceMetrics) {
	m.phase1Runtime.Set(p.Phase1Runtime.Seconds())
	m.phase2Runtime.Set(p.Phase2Runtime.Seconds())
	m.totalRuntime.Set(p.TotalRuntime.Seconds())
	m.generationsToBest.Set(float64(p.GenerationsToBest))
	m.totalGenerations.Set(float64(p.TotalGenerations))
	m.convergenceStability.Set(p.ConvergenceStability)
	m.initialQuality.Set(p.InitialQuality)
	m.finalQuality.Set(p.FinalQuality)
}
