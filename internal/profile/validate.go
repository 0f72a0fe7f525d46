package profile

import (
	"fmt"
	"math"
)

// ValidationError 검증 실패 (런 시작 전 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만, 런은 계속)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환: 잘못된 프로파일로는 어떤 런도 시작하지 않음
func Validate(p *Profile) error {
	// === Meta ===
	if p.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}
	if p.Meta.Version == "" {
		return ValidationError{"meta.version", "required"}
	}
	if p.Meta.SportKey == "" {
		return ValidationError{"meta.sport_key", "required"}
	}

	// === Weights ===
	if !p.Weights.HasEnabled() {
		return ValidationError{"weights", "at least one enabled factor with weight > 0 required"}
	}
	for key, w := range p.Weights {
		if w.WeightPercent < 0 || w.WeightPercent > 100 {
			return ValidationError{fmt.Sprintf("weights.%s", key), "weight_percent must be in [0, 100]"}
		}
	}

	// === Aggregation ===
	if p.Aggregation.ScalingConstant <= 0 {
		return ValidationError{"aggregation.scaling_constant", "must be > 0"}
	}
	if p.Aggregation.BaseMin >= p.Aggregation.BaseMax {
		return ValidationError{"aggregation", "base_min must be < base_max"}
	}

	// === MarketEdge ===
	if p.MarketEdge.Sensitivity <= 0 {
		return ValidationError{"market_edge.sensitivity", "must be > 0"}
	}
	if p.MarketEdge.SpreadReference <= 0 {
		return ValidationError{"market_edge.spread_reference", "must be > 0"}
	}

	// === Prediction ===
	if p.Prediction.PointsPerEdgeTotal <= 0 {
		return ValidationError{"prediction.points_per_edge_total", "must be > 0"}
	}
	if p.Prediction.PointsPerEdgeSide <= 0 {
		return ValidationError{"prediction.points_per_edge_side", "must be > 0"}
	}
	if p.Prediction.FallbackBaselineTotal <= 0 {
		return ValidationError{"prediction.fallback_baseline_total", "must be > 0"}
	}

	// === Decision ===
	if len(p.Decision.Ladder) == 0 {
		return ValidationError{"decision.ladder", "must have at least one step"}
	}
	prev := math.Inf(-1)
	for i, step := range p.Decision.Ladder {
		field := fmt.Sprintf("decision.ladder[%d]", i)
		if step.MinConf <= prev {
			return ValidationError{field, "min_conf must be strictly ascending"}
		}
		if step.MinConf < p.Aggregation.BaseMin || step.MinConf > p.Aggregation.BaseMax {
			return ValidationError{field, "min_conf must lie within [base_min, base_max]"}
		}
		if step.Units < 1 {
			return ValidationError{field, "units must be >= 1"}
		}
		if i > 0 && step.Units <= p.Decision.Ladder[i-1].Units {
			return ValidationError{field, "units must be strictly ascending"}
		}
		prev = step.MinConf
	}
	if p.Decision.MaxUnits < 1 {
		return ValidationError{"decision.max_units", "must be >= 1"}
	}
	if top := p.Decision.Ladder[len(p.Decision.Ladder)-1].Units; top > p.Decision.MaxUnits {
		return ValidationError{"decision.ladder", fmt.Sprintf("top rung units %d exceed max_units %d", top, p.Decision.MaxUnits)}
	}
	if p.Decision.SideCap <= 0 {
		return ValidationError{"decision.side_cap", "must be > 0"}
	}
	if p.Decision.TotalCap <= 0 {
		return ValidationError{"decision.total_cap", "must be > 0"}
	}

	// === Staking ===
	if p.Staking.UnitSizeUSD < 0 {
		return ValidationError{"staking.unit_size_usd", "must be >= 0"}
	}
	if p.Staking.BankrollUSD < 0 {
		return ValidationError{"staking.bankroll_usd", "must be >= 0"}
	}

	return nil
}

// Warnings returns advisory findings that do not block a run.
func Warnings(p *Profile) []Warning {
	var warnings []Warning

	sum := 0.0
	for _, w := range p.Weights {
		if w.Enabled {
			sum += w.WeightPercent
		}
	}
	if math.Abs(sum-100) > 0.5 {
		warnings = append(warnings, Warning{
			Code:    "W-WEIGHT-SUM",
			Message: fmt.Sprintf("enabled analytical weights sum to %.1f, conventionally 100", sum),
		})
	}

	if p.Staking.BankrollUSD > 0 && p.Staking.UnitSizeUSD > 0 {
		maxStake := p.Staking.UnitSizeUSD * float64(p.Decision.MaxUnits)
		if maxStake > p.Staking.BankrollUSD*0.10 {
			warnings = append(warnings, Warning{
				Code:    "W-STAKE-EXPOSURE",
				Message: fmt.Sprintf("max single stake $%.0f exceeds 10%% of bankroll $%.0f", maxStake, p.Staking.BankrollUSD),
			})
		}
	}

	return warnings
}
