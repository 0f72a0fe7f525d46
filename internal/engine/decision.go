package engine

import (
	"fmt"
	"math"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// DecideInput is everything S7 hands the decision engine. Edges are
// raw (pre-cap) point disagreements; market lines ride along for the
// audit record.
type DecideInput struct {
	ConfScore    float64
	EdgeSidePts  float64
	EdgeTotalPts float64
	MarketSpread float64
	MarketTotal  float64
}

// Decide maps a confidence score and the two market edges to the final
// verdict.
//
// Order of business: cap both edges, tie-break the bet type on
// normalized magnitude (|edge|/cap, exact tie goes to the total), then
// read stake units off the profile ladder. Below the first rung the
// verdict is PASS with zero units. The selection follows the sign of
// the winning edge.
func (e *Engine) Decide(in DecideInput) (*contracts.Decision, error) {
	cfg := e.cfg.Decision
	if len(cfg.Ladder) == 0 {
		return nil, contracts.ConfigurationError("", "decision ladder is empty")
	}
	for i := 1; i < len(cfg.Ladder); i++ {
		if cfg.Ladder[i].MinConf <= cfg.Ladder[i-1].MinConf {
			return nil, contracts.ConfigurationError("", "decision ladder must be strictly ascending")
		}
	}

	side, total := e.CapEdges(in.EdgeSidePts, in.EdgeTotalPts)

	d := &contracts.Decision{
		ConfScore:    in.ConfScore,
		EdgeSidePts:  side.Value,
		EdgeTotalPts: total.Value,
		CappedSide:   side.Capped,
		CappedTotal:  total.Capped,
	}

	// Bet-type tie-break on normalized magnitude.
	normSide := normalizedEdge(side.Value, cfg.SideCap)
	normTotal := normalizedEdge(total.Value, cfg.TotalCap)
	if normSide == 0 && normTotal == 0 {
		d.Verdict = contracts.VerdictPass
		d.Reason = "no market disagreement on either edge"
		return d, nil
	}

	betType := contracts.BetTotal
	winningEdge := total.Value
	if normSide > normTotal {
		betType = contracts.BetSpread
		winningEdge = side.Value
	}

	passThreshold := cfg.Ladder[0].MinConf
	if in.ConfScore < passThreshold {
		d.Verdict = contracts.VerdictPass
		d.Reason = fmt.Sprintf("conf %.2f below pass threshold %.2f", in.ConfScore, passThreshold)
		return d, nil
	}

	units := 0
	for _, step := range cfg.Ladder {
		if in.ConfScore >= step.MinConf {
			units = step.Units
		}
	}
	if cfg.MaxUnits > 0 && units > cfg.MaxUnits {
		units = cfg.MaxUnits
	}

	d.Verdict = contracts.VerdictPick
	d.BetType = betType
	d.Units = units
	d.Selection = selectionFor(betType, winningEdge)
	d.Reason = fmt.Sprintf("%s edge %.2f pts at conf %.2f", betType, winningEdge, in.ConfScore)
	return d, nil
}

// normalizedEdge expresses an edge as a fraction of its cap so the two
// bet types compare on equal footing.
func normalizedEdge(edge, cap float64) float64 {
	if cap <= 0 {
		return 0
	}
	return math.Abs(edge) / cap
}

func selectionFor(bt contracts.BetType, edge float64) contracts.Selection {
	if bt == contracts.BetTotal {
		if edge > 0 {
			return contracts.SelectionOver
		}
		return contracts.SelectionUnder
	}
	if edge > 0 {
		return contracts.SelectionHome
	}
	return contracts.SelectionAway
}
