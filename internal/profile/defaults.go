package profile

import "github.com/wonny/delphi/v2/backend/internal/contracts"

// DefaultV1 is the first-generation NBA profile: three analytical
// factors on a 0-5 confidence scale with a three-rung ladder. The
// scaling constant saturates hard, so v1 verdicts are close to
// all-or-nothing. Kept callable for replaying historical runs.
func DefaultV1() *Profile {
	return &Profile{
		Meta: Meta{
			ProfileID: "delphi_nba_v1",
			Version:   "1.3.0",
			SportKey:  "basketball_nba",
			Notes:     "legacy saturating scale, retired 2025-11",
		},
		Weights: contracts.WeightConfig{
			"form":     {WeightPercent: 30, Enabled: true},
			"matchup":  {WeightPercent: 20, Enabled: true},
			"pace":     {WeightPercent: 50, Enabled: true},
			"injuries": {WeightPercent: 0, Enabled: false},
			"rest":     {WeightPercent: 0, Enabled: false},
		},
		Aggregation: Aggregation{
			ScalingConstant: 2.5,
			BaseMin:         0,
			BaseMax:         5,
		},
		MarketEdge: MarketEdge{
			Sensitivity:     5.0,
			SpreadReference: 3.0,
		},
		Prediction: Prediction{
			PointsPerEdgeTotal:    0.12,
			PointsPerEdgeSide:     0.10,
			FallbackBaselineTotal: 224.0,
		},
		Decision: Decision{
			Ladder: []LadderStep{
				{MinConf: 3.0, Units: 1},
				{MinConf: 3.75, Units: 2},
				{MinConf: 4.5, Units: 3},
			},
			MaxUnits: 3,
			SideCap:  6.0,
			TotalCap: 12.0,
		},
		Staking: Staking{
			UnitSizeUSD: 100,
			BankrollUSD: 10000,
		},
	}
}

// DefaultV2 is the current NBA profile: five factors on a 1-10 scale,
// a five-rung ladder, and a re-tuned scaling constant so realistic
// factor sums spread across the scale instead of pinning the ends.
func DefaultV2() *Profile {
	return &Profile{
		Meta: Meta{
			ProfileID: "delphi_nba_v2",
			Version:   "2.1.0",
			SportKey:  "basketball_nba",
		},
		Weights: contracts.WeightConfig{
			"form":     {WeightPercent: 20, Enabled: true},
			"matchup":  {WeightPercent: 25, Enabled: true},
			"pace":     {WeightPercent: 20, Enabled: true},
			"injuries": {WeightPercent: 20, Enabled: true},
			"rest":     {WeightPercent: 15, Enabled: true},
		},
		Aggregation: Aggregation{
			ScalingConstant: 0.04,
			BaseMin:         1,
			BaseMax:         10,
		},
		MarketEdge: MarketEdge{
			Sensitivity:     5.0,
			SpreadReference: 3.0,
		},
		Prediction: Prediction{
			PointsPerEdgeTotal:    0.12,
			PointsPerEdgeSide:     0.10,
			FallbackBaselineTotal: 224.5,
		},
		Decision: Decision{
			Ladder: []LadderStep{
				{MinConf: 6.0, Units: 1},
				{MinConf: 6.8, Units: 2},
				{MinConf: 7.6, Units: 3},
				{MinConf: 8.4, Units: 4},
				{MinConf: 9.2, Units: 5},
			},
			MaxUnits: 5,
			SideCap:  6.0,
			TotalCap: 12.0,
		},
		Staking: Staking{
			UnitSizeUSD: 50,
			BankrollUSD: 10000,
		},
		Enrichment: Enrichment{Enabled: true},
	}
}
