package factors

import (
	"math"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// RestCalculator scores schedule fatigue. Like the injury calculator it
// emits two scores: a side score from the rest differential and a total
// score from absolute fatigue, because tired teams score less whoever
// wins.
// ⭐ SSOT: 휴식/일정 팩터 계산은 여기서만
type RestCalculator struct {
	logger *logger.Logger
}

// NewRestCalculator creates a new rest calculator
func NewRestCalculator(log *logger.Logger) *RestCalculator {
	return &RestCalculator{
		logger: log,
	}
}

// Calculate scores the schedule spot for both markets. The side score
// is positive when the home team is fresher; the total score is never
// positive.
func (c *RestCalculator) Calculate(game contracts.Game, home, away contracts.TeamForm) (float64, float64, contracts.RestPayload, error) {
	payload := contracts.RestPayload{
		HomeRestDays:   home.RestDays,
		AwayRestDays:   away.RestDays,
		HomeBackToBack: home.BackToBack,
		AwayBackToBack: away.BackToBack,
	}

	sideScore := c.calculateSideScore(home, away)
	totalScore := c.calculateTotalScore(home, away)

	c.logger.WithFields(map[string]interface{}{
		"game_id":     game.GameID,
		"home_rest":   home.RestDays,
		"away_rest":   away.RestDays,
		"side_score":  sideScore,
		"total_score": totalScore,
	}).Debug("Calculated rest factor")

	return sideScore, totalScore, payload, nil
}

// calculateSideScore calculates the rest advantage score (-1.0 ~ 1.0)
func (c *RestCalculator) calculateSideScore(home, away contracts.TeamForm) float64 {
	// Rest differential, capped: past three extra days the benefit
	// flattens out
	restDiff := float64(home.RestDays-away.RestDays) * 0.25
	if restDiff > 0.75 {
		restDiff = 0.75
	} else if restDiff < -0.75 {
		restDiff = -0.75
	}

	// A back-to-back hits harder than a one-day rest gap
	if home.BackToBack {
		restDiff -= 0.4
	}
	if away.BackToBack {
		restDiff += 0.4
	}

	return math.Tanh(restDiff * 1.5)
}

// calculateTotalScore calculates the fatigue drag on scoring (-1.0 ~ 0.0)
func (c *RestCalculator) calculateTotalScore(home, away contracts.TeamForm) float64 {
	fatigue := 0.0
	if home.BackToBack {
		fatigue += 0.45
	}
	if away.BackToBack {
		fatigue += 0.45
	}

	if fatigue == 0 {
		return 0.0
	}

	return -math.Tanh(fatigue)
}
