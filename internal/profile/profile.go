package profile

import (
	"time"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/internal/engine"
)

// Profile은 한 캐퍼 전략의 전체 설정 (버전 단위로 교체)
type Profile struct {
	Meta        Meta                   `yaml:"meta" json:"meta"`
	Weights     contracts.WeightConfig `yaml:"weights" json:"weights"`
	Aggregation Aggregation            `yaml:"aggregation" json:"aggregation"`
	MarketEdge  MarketEdge             `yaml:"market_edge" json:"market_edge"`
	Prediction  Prediction             `yaml:"prediction" json:"prediction"`
	Decision    Decision               `yaml:"decision" json:"decision"`
	Staking     Staking                `yaml:"staking" json:"staking"`
	Enrichment  Enrichment             `yaml:"enrichment" json:"enrichment"`
}

// Meta 메타 정보
type Meta struct {
	ProfileID string `yaml:"profile_id" json:"profile_id"`
	Version   string `yaml:"version" json:"version"`
	SportKey  string `yaml:"sport_key" json:"sport_key"`
	Notes     string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Aggregation 신뢰도 집계 파라미터
type Aggregation struct {
	ScalingConstant float64 `yaml:"scaling_constant" json:"scaling_constant"`
	BaseMin         float64 `yaml:"base_min" json:"base_min"`
	BaseMax         float64 `yaml:"base_max" json:"base_max"`
}

// MarketEdge 마켓 엣지 팩터 파라미터
type MarketEdge struct {
	Sensitivity     float64 `yaml:"sensitivity" json:"sensitivity"`
	SpreadReference float64 `yaml:"spread_reference" json:"spread_reference"`
}

// Prediction 예측 앵커
type Prediction struct {
	PointsPerEdgeTotal    float64 `yaml:"points_per_edge_total" json:"points_per_edge_total"`
	PointsPerEdgeSide     float64 `yaml:"points_per_edge_side" json:"points_per_edge_side"`
	FallbackBaselineTotal float64 `yaml:"fallback_baseline_total" json:"fallback_baseline_total"`
}

// Decision 판정 래더와 엣지 캡
type Decision struct {
	Ladder   []LadderStep `yaml:"ladder" json:"ladder"`
	MaxUnits int          `yaml:"max_units" json:"max_units"`
	SideCap  float64      `yaml:"side_cap" json:"side_cap"`
	TotalCap float64      `yaml:"total_cap" json:"total_cap"`
}

// LadderStep 래더 한 칸: MinConf 이상이면 Units
type LadderStep struct {
	MinConf float64 `yaml:"min_conf" json:"min_conf"`
	Units   int     `yaml:"units" json:"units"`
}

// Staking 유닛 → 달러 변환
type Staking struct {
	UnitSizeUSD   float64 `yaml:"unit_size_usd" json:"unit_size_usd"`
	BankrollUSD   float64 `yaml:"bankroll_usd" json:"bankroll_usd"`
	MaxExposurePP float64 `yaml:"max_exposure_pct" json:"max_exposure_pct"` // of bankroll, per slate
}

// Enrichment S6 리서치 보강 토글
type Enrichment struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// ToEngineConfig maps the profile onto the engine's parameter set.
func (p *Profile) ToEngineConfig() engine.Config {
	ladder := make([]engine.UnitStep, 0, len(p.Decision.Ladder))
	for _, step := range p.Decision.Ladder {
		ladder = append(ladder, engine.UnitStep{MinConf: step.MinConf, Units: step.Units})
	}
	return engine.Config{
		Aggregation: engine.AggregationConfig{
			ScalingConstant: p.Aggregation.ScalingConstant,
			BaseMin:         p.Aggregation.BaseMin,
			BaseMax:         p.Aggregation.BaseMax,
		},
		MarketEdge: engine.MarketEdgeConfig{
			Sensitivity:     p.MarketEdge.Sensitivity,
			SpreadReference: p.MarketEdge.SpreadReference,
		},
		Prediction: engine.PredictionConfig{
			PointsPerEdgeTotal: p.Prediction.PointsPerEdgeTotal,
			PointsPerEdgeSide:  p.Prediction.PointsPerEdgeSide,
		},
		Decision: engine.DecisionConfig{
			Ladder:   ladder,
			MaxUnits: p.Decision.MaxUnits,
			SideCap:  p.Decision.SideCap,
			TotalCap: p.Decision.TotalCap,
		},
	}
}

// DecisionStamp 의사결정 스탬프 (재현성용)
// 런 레코드에 저장되어 어떤 설정으로 판정했는지 증명한다
type DecisionStamp struct {
	ProfileHash string    `json:"profile_hash"`
	ProfileYAML string    `json:"profile_yaml"`
	ProfileID   string    `json:"profile_id"`
	Version     string    `json:"version"`
	GitCommit   string    `json:"git_commit"`
	CreatedAt   time.Time `json:"created_at"`
}
