package engine

import (
	"math"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// Aggregate collapses weighted factors into a confidence result.
//
//	edgeRaw   = Σ weightPercent · normalizedValue   (unclamped)
//	edgePct   = sigmoid(edgeRaw · scalingConstant)  ∈ (0, 1)
//	confScore = baseMin + (baseMax − baseMin) · edgePct
//
// An empty factor list yields KindInsufficientSignal; the caller pins
// the stage. Out-of-range factor values never reach here: factors are
// clamped to [-1, 1] when they are built.
func (e *Engine) Aggregate(factors []contracts.Factor) (*contracts.ConfidenceResult, error) {
	if len(factors) == 0 {
		return nil, contracts.InsufficientSignal("", "empty factor set")
	}

	cfg := e.cfg.Aggregation
	contributions := make([]contracts.FactorContribution, 0, len(factors))
	edgeRaw := 0.0
	for _, f := range factors {
		c := f.Contribution()
		edgeRaw += c
		contributions = append(contributions, contracts.FactorContribution{
			Key:             f.Key,
			WeightPercent:   f.WeightPercent,
			NormalizedValue: f.NormalizedValue,
			Contribution:    c,
		})
	}

	edgePct := sigmoid(edgeRaw * cfg.ScalingConstant)
	confScore := cfg.BaseMin + (cfg.BaseMax-cfg.BaseMin)*edgePct

	return &contracts.ConfidenceResult{
		EdgeRaw:       edgeRaw,
		EdgePct:       edgePct,
		ConfScore:     confScore,
		ScaleMin:      cfg.BaseMin,
		ScaleMax:      cfg.BaseMax,
		Contributions: contributions,
	}, nil
}

// sigmoid maps the reals onto (0, 1). sigmoid(x) + sigmoid(-x) = 1,
// which gives the aggregator its symmetry guarantee.
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
