package factors

import (
	"math"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// PaceCalculator scores the combined scoring environment for the total
// market
// ⭐ SSOT: 페이스/득점 환경 팩터 계산은 여기서만
type PaceCalculator struct {
	logger *logger.Logger
}

// NewPaceCalculator creates a new pace calculator
func NewPaceCalculator(log *logger.Logger) *PaceCalculator {
	return &PaceCalculator{
		logger: log,
	}
}

// Calculate scores how many points this matchup projects relative to a
// league-average game. Positive leans OVER, negative leans UNDER.
func (c *PaceCalculator) Calculate(game contracts.Game, home, away contracts.TeamForm, leaguePace float64) (float64, contracts.PacePayload, error) {
	combinedOff := (home.OffRating + away.OffRating) / 2
	combinedDef := (home.DefRating + away.DefRating) / 2

	payload := contracts.PacePayload{
		HomePace:       home.Pace,
		AwayPace:       away.Pace,
		LeaguePace:     leaguePace,
		CombinedOffRtg: combinedOff,
		CombinedDefRtg: combinedDef,
	}

	// Missing tempo data → neutral
	if home.Pace == 0 || away.Pace == 0 || leaguePace == 0 {
		return 0.0, payload, nil
	}

	score := c.calculateScore(home, away, leaguePace)

	c.logger.WithFields(map[string]interface{}{
		"game_id":     game.GameID,
		"league_pace": leaguePace,
		"game_pace":   (home.Pace + away.Pace) / 2,
		"score":       score,
	}).Debug("Calculated pace factor")

	return score, payload, nil
}

// calculateScore calculates pace score (-1.0 ~ 1.0)
func (c *PaceCalculator) calculateScore(home, away contracts.TeamForm, leaguePace float64) float64 {
	// Tempo: combined possessions against the league baseline.
	// A four-possession swing is the practical extreme.
	combinedPace := (home.Pace + away.Pace) / 2
	paceDelta := (combinedPace - leaguePace) / 4.0

	// Efficiency: do these offenses outrun these defenses?
	offDelta := ((home.OffRating+away.OffRating)/2 - (home.DefRating+away.DefRating)/2) / 6.0

	// Weight the components
	// Tempo: 60%, Efficiency: 40%
	score := paceDelta*0.6 + offDelta*0.4

	// Normalize to -1.0 ~ 1.0 using tanh
	normalizedScore := math.Tanh(score * 1.5)

	if normalizedScore > 1.0 {
		normalizedScore = 1.0
	} else if normalizedScore < -1.0 {
		normalizedScore = -1.0
	}

	return normalizedScore
}
