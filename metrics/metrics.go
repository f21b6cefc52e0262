package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationAttempts counts attempts by outcome: accepted, rejected or failed.
	GenerationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patgen_generation_attempts_total",
		Help: "Generation attempts by pattern and outcome",
	}, []string{"pattern", "outcome"})

	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patgen_generations_total",
		Help: "Generation calls by result",
	}, []string{"result"})

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "patgen_generation_duration_seconds",
		Help:    "Generation call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	// SandboxViolations counts rejected expressions by reason and by the
	// place the expression came from: formula, template, rule or solver.
	SandboxViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patgen_sandbox_violations_total",
		Help: "Expressions rejected by the sandbox",
	}, []string{"reason", "source"})

	SolverRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patgen_solver_runs_total",
		Help: "Solver code executions by result",
	}, []string{"result"})

	RenderFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patgen_render_fallbacks_total",
		Help: "Template placeholders that could not be evaluated, by fallback",
	}, []string{"fallback"})

	PatternsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "patgen_patterns_loaded",
		Help: "Patterns in the repository cache",
	})
)
