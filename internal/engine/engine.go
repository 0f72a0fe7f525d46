// Package engine holds the deterministic scoring and decision core.
// Every function here is pure: no clock, no randomness, no I/O, so the
// same inputs always produce byte-identical outputs regardless of how
// a run was triggered.
package engine

import (
	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// AggregationConfig controls how weighted factors collapse into a
// confidence score.
type AggregationConfig struct {
	// ScalingConstant controls how quickly the sigmoid saturates as
	// |edgeRaw| grows.
	ScalingConstant float64
	// BaseMin/BaseMax define the display scale confScore lands on.
	BaseMin float64
	BaseMax float64
}

// MarketEdgeConfig controls the model-vs-market factor built at S5.
type MarketEdgeConfig struct {
	// Sensitivity multiplies the normalized edge before tanh.
	Sensitivity float64
	// SpreadReference is the fixed normalization scale for spread
	// edges. Totals normalize against the market line itself.
	SpreadReference float64
}

// PredictionConfig anchors edgeRaw to sport-level point values.
type PredictionConfig struct {
	PointsPerEdgeTotal float64
	PointsPerEdgeSide  float64
}

// UnitStep is one rung of the stake ladder: at or above MinConf the
// verdict earns Units.
type UnitStep struct {
	MinConf float64
	Units   int
}

// DecisionConfig controls the PASS/PICK verdict.
// Ladder must be ascending in MinConf; the first rung is the pass
// threshold. SideCap/TotalCap bound the edge magnitudes fed to the
// tie-break.
type DecisionConfig struct {
	Ladder   []UnitStep
	MaxUnits int
	SideCap  float64
	TotalCap float64
}

// Config is the full engine parameter set, resolved from the active
// capper profile before the engine is constructed.
type Config struct {
	Aggregation AggregationConfig
	MarketEdge  MarketEdgeConfig
	Prediction  PredictionConfig
	Decision    DecisionConfig
}

// DefaultConfig returns the contract defaults. Profiles normally
// override most of these; the constants here are the documented
// fallbacks, not a tuned strategy.
func DefaultConfig() Config {
	return Config{
		Aggregation: AggregationConfig{
			ScalingConstant: 2.5,
			BaseMin:         0,
			BaseMax:         5,
		},
		MarketEdge: MarketEdgeConfig{
			Sensitivity:     5.0,
			SpreadReference: 3.0,
		},
		Prediction: PredictionConfig{
			PointsPerEdgeTotal: 0.12,
			PointsPerEdgeSide:  0.10,
		},
		Decision: DecisionConfig{
			Ladder: []UnitStep{
				{MinConf: 3.0, Units: 1},
				{MinConf: 3.75, Units: 2},
				{MinConf: 4.5, Units: 3},
			},
			MaxUnits: 3,
			SideCap:  6.0,
			TotalCap: 12.0,
		},
	}
}

// Engine evaluates factors, predictions and decisions for one profile.
// Collaborators receive it fully constructed; it holds no mutable state.
type Engine struct {
	cfg Config
}

// New creates an engine from a resolved config.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's resolved parameter set.
func (e *Engine) Config() Config {
	return e.cfg
}

// FilterScope returns the factors participating in the given bet
// type's aggregation, preserving order.
func FilterScope(factors []contracts.Factor, bt contracts.BetType) []contracts.Factor {
	out := make([]contracts.Factor, 0, len(factors))
	for _, f := range factors {
		if f.Scope.AppliesTo(bt) {
			out = append(out, f)
		}
	}
	return out
}
