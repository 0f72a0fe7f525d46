package contracts

import "time"

// Pick is the immutable recommendation a run emits on a PICK verdict.
// LockedOdds is the frozen S2 snapshot, not the lines at decision time.
type Pick struct {
	PickID     string       `json:"pick_id"`
	RunID      string       `json:"run_id"`
	GameID     string       `json:"game_id"`
	BetType    BetType      `json:"bet_type"`
	Selection  Selection    `json:"selection"`
	Units      int          `json:"units"`
	Confidence float64      `json:"confidence"`
	EdgePts    float64      `json:"edge_pts"`
	LockedOdds OddsSnapshot `json:"locked_odds"`
	Narrative  string       `json:"narrative,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Line returns the frozen market number the pick was made against.
func (p Pick) Line() float64 {
	if p.BetType == BetTotal {
		return p.LockedOdds.Total
	}
	return p.LockedOdds.Spread
}
