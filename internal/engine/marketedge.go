package engine

import (
	"fmt"
	"math"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// Market-edge factor keys
const (
	FactorKeyMarketEdgeTotal = "market_edge_total"
	FactorKeyMarketEdgeSide  = "market_edge_side"
)

// capSignalThreshold marks the tanh signal as saturated.
const capSignalThreshold = 0.99

// PredictInput carries the per-market edgeRaw sums S4 aggregated from
// the analytical factors.
type PredictInput struct {
	EdgeRawTotal   float64
	EdgeRawSide    float64
	Baseline       float64 // league average total points
	TotalAvailable bool
	SideAvailable  bool
}

// Predict converts factor-weighted edges into the model's own numbers:
// a predicted game total anchored on the league baseline and a
// predicted home margin anchored on zero.
func (e *Engine) Predict(in PredictInput) *contracts.Prediction {
	cfg := e.cfg.Prediction
	p := &contracts.Prediction{
		EdgeRawTotal:   in.EdgeRawTotal,
		EdgeRawSide:    in.EdgeRawSide,
		BaselineAvg:    in.Baseline,
		TotalAvailable: in.TotalAvailable,
		SideAvailable:  in.SideAvailable,
	}
	if in.TotalAvailable {
		p.PredictedTotal = in.Baseline + in.EdgeRawTotal*cfg.PointsPerEdgeTotal
	}
	if in.SideAvailable {
		p.PredictedMargin = in.EdgeRawSide * cfg.PointsPerEdgeSide
	}
	return p
}

// BuildMarketEdgeFactor compares the model's number against the frozen
// market line and returns the always-full-weight market factor.
//
//	edgePts = predicted − marketLine
//	edgePct = edgePts / referenceScale
//	signal  = tanh(edgePct · sensitivity)
//
// referenceScale is the market line itself for totals and the fixed
// spread reference for sides: spread edges are smaller in points but a
// far larger fraction of their market number, so they saturate sooner.
// For spreads, marketLine must already be the implied home margin.
func (e *Engine) BuildMarketEdgeFactor(bt contracts.BetType, predicted, marketLine float64) (*contracts.Factor, error) {
	cfg := e.cfg.MarketEdge

	var key string
	var scope contracts.MarketScope
	var referenceScale float64
	switch bt {
	case contracts.BetTotal:
		if marketLine <= 0 {
			return nil, contracts.ValidationError("", "total line must be positive, got %.2f", marketLine)
		}
		key = FactorKeyMarketEdgeTotal
		scope = contracts.ScopeTotal
		referenceScale = marketLine
	case contracts.BetSpread:
		key = FactorKeyMarketEdgeSide
		scope = contracts.ScopeSpread
		referenceScale = cfg.SpreadReference
	default:
		return nil, contracts.ValidationError("", "unknown bet type %q", bt)
	}

	edgePts := predicted - marketLine
	edgePct := edgePts / referenceScale
	signal := math.Tanh(edgePct * cfg.Sensitivity)

	f := &contracts.Factor{
		Key:             key,
		DisplayName:     "Market edge",
		NormalizedValue: signal,
		WeightPercent:   100,
		Scope:           scope,
		Notes:           fmt.Sprintf("model %.2f vs market %.2f", predicted, marketLine),
		Payload: contracts.MarketEdgePayload{
			BetType:        bt,
			Predicted:      predicted,
			MarketLine:     marketLine,
			EdgePts:        edgePts,
			EdgePct:        edgePct,
			ReferenceScale: referenceScale,
			Sensitivity:    cfg.Sensitivity,
		},
	}
	if math.Abs(signal) >= capSignalThreshold {
		f.WasCapped = true
		f.CapReason = "tanh saturated"
	}
	return f, nil
}
