package contracts

import "time"

// ResearchInput is what S6 hands the research ensemble: the game plus
// the model's view of it. No market-moving secrets, just context for
// a readable write-up.
type ResearchInput struct {
	Game            Game    `json:"game"`
	BetType         BetType `json:"bet_type"`
	PredictedTotal  float64 `json:"predicted_total"`
	PredictedMargin float64 `json:"predicted_margin"`
	MarketTotal     float64 `json:"market_total"`
	MarketSpread    float64 `json:"market_spread"`
	ConfScore       float64 `json:"conf_score"`
}

// Narrative is the research ensemble's output attached to a run.
type Narrative struct {
	Summary     string    `json:"summary"`
	Angle       string    `json:"angle,omitempty"`
	Providers   []string  `json:"providers"`
	GeneratedAt time.Time `json:"generated_at"`
}
