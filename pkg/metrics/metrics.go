// Package metrics provides Prometheus metrics for the pick pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics collects and exposes pipeline-related Prometheus metrics.
type PipelineMetrics struct {
	registry *prometheus.Registry

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Stage metrics
	StageLatency *prometheus.HistogramVec
	StageErrors  *prometheus.CounterVec
	StageReplays *prometheus.CounterVec

	// Provider metrics
	ProviderCalls   *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec

	// Pick metrics
	PicksTotal      *prometheus.CounterVec
	PickUnits       *prometheus.HistogramVec
	ConfidenceScore *prometheus.HistogramVec
	EdgePoints      *prometheus.HistogramVec

	// Worker pool metrics
	QueueDepth  *prometheus.GaugeVec
	WorkersBusy *prometheus.GaugeVec

	// Realtime metrics
	LinesWatched *prometheus.GaugeVec
}

// NewPipelineMetrics creates a new pipeline metrics collector.
func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	pm := &PipelineMetrics{
		registry: registry,

		// Run metrics
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delphi_runs_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"trigger", "status"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "delphi_run_duration_seconds",
				Help:    "Total pipeline run duration",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~400s
			},
			[]string{},
		),

		// Stage metrics
		StageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "delphi_stage_latency_seconds",
				Help:    "Individual stage latency",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"stage"},
		),
		StageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delphi_stage_errors_total",
				Help: "Total number of stage failures by error kind",
			},
			[]string{"stage", "kind"},
		),
		StageReplays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delphi_stage_replays_total",
				Help: "Stage executions short-circuited by the idempotency guard",
			},
			[]string{"stage"},
		),

		// Provider metrics
		ProviderCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delphi_provider_calls_total",
				Help: "Total number of external provider calls",
			},
			[]string{"provider", "status"},
		),
		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "delphi_provider_latency_seconds",
				Help:    "External provider call latency",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"provider"},
		),

		// Pick metrics
		PicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delphi_picks_total",
				Help: "Total number of finalized decisions",
			},
			[]string{"bet_type", "verdict"},
		),
		PickUnits: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "delphi_pick_units",
				Help:    "Stake units of finalized picks",
				Buckets: prometheus.LinearBuckets(0, 1, 6), // 0 to 5 units
			},
			[]string{"bet_type"},
		),
		ConfidenceScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "delphi_confidence_score",
				Help:    "Final confidence score on the profile scale",
				Buckets: prometheus.LinearBuckets(0, 1, 11), // covers 0-5 and 1-10 scales
			},
			[]string{"bet_type"},
		),
		EdgePoints: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "delphi_edge_points",
				Help:    "Absolute model vs market disagreement in points",
				Buckets: []float64{0, 0.5, 1, 2, 3, 5, 8, 13},
			},
			[]string{"market"},
		),

		// Worker pool metrics
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "delphi_queue_depth",
				Help: "Runs waiting in the worker pool queue",
			},
			[]string{},
		),
		WorkersBusy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "delphi_workers_busy",
				Help: "Workers currently executing a run",
			},
			[]string{},
		),

		// Realtime metrics
		LinesWatched: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "delphi_lines_watched",
				Help: "Games currently tracked by the line watcher",
			},
			[]string{},
		),
	}

	// Register all metrics
	pm.registerAll()

	return pm
}

func (pm *PipelineMetrics) registerAll() {
	pm.registry.MustRegister(
		pm.RunsTotal,
		pm.RunDuration,
		pm.StageLatency,
		pm.StageErrors,
		pm.StageReplays,
		pm.ProviderCalls,
		pm.ProviderLatency,
		pm.PicksTotal,
		pm.PickUnits,
		pm.ConfidenceScore,
		pm.EdgePoints,
		pm.QueueDepth,
		pm.WorkersBusy,
		pm.LinesWatched,
	)
}

// Registry returns the prometheus registry.
func (pm *PipelineMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// Handler returns an http.Handler serving the registry.
func (pm *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// --- Helper methods for recording metrics ---

// RecordRun records a completed pipeline run.
func (pm *PipelineMetrics) RecordRun(trigger, status string, durationSec float64) {
	pm.RunsTotal.WithLabelValues(trigger, status).Inc()
	if durationSec > 0 {
		pm.RunDuration.WithLabelValues().Observe(durationSec)
	}
}

// RecordStage records a stage execution.
func (pm *PipelineMetrics) RecordStage(stage string, durationSec float64) {
	pm.StageLatency.WithLabelValues(stage).Observe(durationSec)
}

// RecordStageError records a stage failure.
func (pm *PipelineMetrics) RecordStageError(stage, kind string) {
	pm.StageErrors.WithLabelValues(stage, kind).Inc()
}

// RecordReplay records an idempotent replay.
func (pm *PipelineMetrics) RecordReplay(stage string) {
	pm.StageReplays.WithLabelValues(stage).Inc()
}

// RecordProviderCall records an external provider call.
func (pm *PipelineMetrics) RecordProviderCall(provider, status string, latencySec float64) {
	pm.ProviderCalls.WithLabelValues(provider, status).Inc()
	if latencySec > 0 {
		pm.ProviderLatency.WithLabelValues(provider).Observe(latencySec)
	}
}

// RecordPick records a finalized decision.
func (pm *PipelineMetrics) RecordPick(betType, verdict string, units int, confidence float64) {
	pm.PicksTotal.WithLabelValues(betType, verdict).Inc()
	pm.PickUnits.WithLabelValues(betType).Observe(float64(units))
	if confidence >= 0 {
		pm.ConfidenceScore.WithLabelValues(betType).Observe(confidence)
	}
}

// RecordEdge records a model vs market point disagreement.
func (pm *PipelineMetrics) RecordEdge(market string, edgePts float64) {
	if edgePts < 0 {
		edgePts = -edgePts
	}
	pm.EdgePoints.WithLabelValues(market).Observe(edgePts)
}

// UpdatePool updates worker pool gauges.
func (pm *PipelineMetrics) UpdatePool(queued, busy int) {
	pm.QueueDepth.WithLabelValues().Set(float64(queued))
	pm.WorkersBusy.WithLabelValues().Set(float64(busy))
}

// UpdateLinesWatched updates the line watcher gauge.
func (pm *PipelineMetrics) UpdateLinesWatched(count int) {
	pm.LinesWatched.WithLabelValues().Set(float64(count))
}

// Global instance for convenience
var defaultMetrics *PipelineMetrics
var once sync.Once

// Default returns the default global metrics instance.
func Default() *PipelineMetrics {
	once.Do(func() {
		defaultMetrics = NewPipelineMetrics()
	})
	return defaultMetrics
}
