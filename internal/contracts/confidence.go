package contracts

// FactorContribution is one factor's line item in an aggregation,
// ordered the way the factors entered the aggregator.
type FactorContribution struct {
	Key             string  `json:"key"`
	WeightPercent   float64 `json:"weight_percent"`
	NormalizedValue float64 `json:"normalized_value"`
	Contribution    float64 `json:"contribution"` // weight_percent * normalized_value
}

// ConfidenceResult is the aggregator's output.
//
// EdgeRaw is the unclamped weighted sum, EdgePct its sigmoid image in
// (0, 1), ConfScore the same signal mapped onto the profile's display
// scale. EdgePct for a sign-inverted factor set sums with the original
// to 1 within floating-point tolerance.
type ConfidenceResult struct {
	EdgeRaw       float64              `json:"edge_raw"`
	EdgePct       float64              `json:"edge_pct"`
	ConfScore     float64              `json:"conf_score"`
	ScaleMin      float64              `json:"scale_min"`
	ScaleMax      float64              `json:"scale_max"`
	Contributions []FactorContribution `json:"contributions"`
}

// Prediction is S4's output: the model's own numbers for both markets,
// before any market comparison.
type Prediction struct {
	EdgeRawTotal    float64 `json:"edge_raw_total"`
	EdgeRawSide     float64 `json:"edge_raw_side"`
	PredictedTotal  float64 `json:"predicted_total"`
	PredictedMargin float64 `json:"predicted_margin"` // home minus away
	BaselineAvg     float64 `json:"baseline_avg"`
	TotalAvailable  bool    `json:"total_available"`
	SideAvailable   bool    `json:"side_available"`
}

// Verdict is the decision engine's final call
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictPick Verdict = "PICK"
)

// Decision is S7's output. Edge values are post-cap; the flags say
// whether capping fired.
type Decision struct {
	Verdict      Verdict   `json:"verdict"`
	BetType      BetType   `json:"bet_type,omitempty"`
	Selection    Selection `json:"selection,omitempty"`
	Units        int       `json:"units"`
	ConfScore    float64   `json:"conf_score"`
	EdgeSidePts  float64   `json:"edge_side_pts"`
	EdgeTotalPts float64   `json:"edge_total_pts"`
	CappedSide   bool      `json:"capped_side"`
	CappedTotal  bool      `json:"capped_total"`
	Reason       string    `json:"reason,omitempty"`
}
