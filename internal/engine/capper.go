package engine

import "math"

// CapResult is one clamped edge with its cap flag.
type CapResult struct {
	Value  float64 `json:"value"`
	Capped bool    `json:"capped"`
}

// CapEdges clamps the raw point edges to the profile caps, preserving
// sign. A capped edge becomes exactly ±cap and the flag is raised; the
// value is never silently discarded or zeroed.
// ⭐ SSOT: 엣지 클램핑은 여기서만
func (e *Engine) CapEdges(edgeSidePts, edgeTotalPts float64) (side, total CapResult) {
	side = capOne(edgeSidePts, e.cfg.Decision.SideCap)
	total = capOne(edgeTotalPts, e.cfg.Decision.TotalCap)
	return side, total
}

func capOne(v, cap float64) CapResult {
	if cap <= 0 || math.Abs(v) <= cap {
		return CapResult{Value: v}
	}
	return CapResult{Value: math.Copysign(cap, v), Capped: true}
}
