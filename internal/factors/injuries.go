package factors

import (
	"math"
	"strings"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// InjuryCalculator scores player availability. It emits two scores from
// one report set: a side score built on the impact differential between
// the teams, and a total score built on the combined impact, since
// missing rotation players drain scoring no matter which side they
// play for.
// ⭐ SSOT: 부상 가용성 팩터 계산은 여기서만
type InjuryCalculator struct {
	logger *logger.Logger
}

// NewInjuryCalculator creates a new injury calculator
func NewInjuryCalculator(log *logger.Logger) *InjuryCalculator {
	return &InjuryCalculator{
		logger: log,
	}
}

// Calculate scores the injury reports for both markets. The side score
// is positive when the away team is more shorthanded; the total score
// is never positive.
func (c *InjuryCalculator) Calculate(game contracts.Game, reports []contracts.InjuryReport) (float64, float64, contracts.InjuryPayload, error) {
	payload := contracts.InjuryPayload{}

	if len(reports) == 0 {
		// Clean injury report → neutral
		return 0.0, 0.0, payload, nil
	}

	for _, r := range reports {
		impact := statusWeight(r.Status) * r.ImpactRank

		switch {
		case strings.EqualFold(r.Team, game.HomeTeam):
			payload.HomeImpactScore += impact
			if r.Status == "OUT" {
				payload.HomeOutCount++
			}
		case strings.EqualFold(r.Team, game.AwayTeam):
			payload.AwayImpactScore += impact
			if r.Status == "OUT" {
				payload.AwayOutCount++
			}
		}
	}

	sideScore := math.Tanh((payload.AwayImpactScore - payload.HomeImpactScore) * 0.8)
	totalScore := -math.Tanh((payload.HomeImpactScore + payload.AwayImpactScore) * 0.5)

	c.logger.WithFields(map[string]interface{}{
		"game_id":     game.GameID,
		"reports":     len(reports),
		"home_impact": payload.HomeImpactScore,
		"away_impact": payload.AwayImpactScore,
		"side_score":  sideScore,
		"total_score": totalScore,
	}).Debug("Calculated injury factor")

	return sideScore, totalScore, payload, nil
}

// statusWeight maps a normalized injury status to how much of the
// player's impact is expected to be lost.
func statusWeight(status string) float64 {
	weights := map[string]float64{
		"OUT":          1.0,
		"DOUBTFUL":     0.75,
		"QUESTIONABLE": 0.4,
		"PROBABLE":     0.15,
	}

	if w, ok := weights[status]; ok {
		return w
	}

	return 0.0
}
