package factors

import (
	"math"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// FormCalculator scores recent team form for the side market
// ⭐ SSOT: 팀 폼 팩터 계산은 여기서만
type FormCalculator struct {
	logger *logger.Logger
}

// NewFormCalculator creates a new form calculator
func NewFormCalculator(log *logger.Logger) *FormCalculator {
	return &FormCalculator{
		logger: log,
	}
}

// Calculate scores the home team's recent form against the away team's.
// Positive favors the home side.
func (c *FormCalculator) Calculate(game contracts.Game, home, away contracts.TeamForm) (float64, contracts.FormPayload, error) {
	payload := contracts.FormPayload{
		HomeWinPct10: home.WinPct10,
		AwayWinPct10: away.WinPct10,
		HomeStreak:   home.Streak,
		AwayStreak:   away.Streak,
	}

	score := c.calculateScore(home, away)

	c.logger.WithFields(map[string]interface{}{
		"game_id":  game.GameID,
		"home_l10": home.WinPct10,
		"away_l10": away.WinPct10,
		"score":    score,
	}).Debug("Calculated form factor")

	return score, payload, nil
}

// calculateScore calculates form score (-1.0 ~ 1.0)
func (c *FormCalculator) calculateScore(home, away contracts.TeamForm) float64 {
	// Last-10 record differential is already in [-1, 1]
	winPctDiff := home.WinPct10 - away.WinPct10

	// Streak differential: a 10-game streak gap saturates the component
	streakDiff := float64(home.Streak-away.Streak) / 10.0
	if streakDiff > 1.0 {
		streakDiff = 1.0
	} else if streakDiff < -1.0 {
		streakDiff = -1.0
	}

	// Weight the components
	// WinPctDiff: 70%, StreakDiff: 30%
	score := winPctDiff*0.7 + streakDiff*0.3

	// Normalize to -1.0 ~ 1.0 using tanh
	normalizedScore := math.Tanh(score * 2)

	// Clamp to -1.0 ~ 1.0 (tanh should already do this, but ensure)
	if normalizedScore > 1.0 {
		normalizedScore = 1.0
	} else if normalizedScore < -1.0 {
		normalizedScore = -1.0
	}

	return normalizedScore
}
