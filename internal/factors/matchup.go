package factors

import (
	"math"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// homeCourtNetRating is the average lift home court gives an NBA team's
// net rating, in points per 100 possessions.
const homeCourtNetRating = 2.5

// MatchupCalculator scores head-to-head efficiency for the side market
// ⭐ SSOT: 매치업 효율 팩터 계산은 여기서만
type MatchupCalculator struct {
	logger *logger.Logger
}

// NewMatchupCalculator creates a new matchup calculator
func NewMatchupCalculator(log *logger.Logger) *MatchupCalculator {
	return &MatchupCalculator{
		logger: log,
	}
}

// Calculate scores the net rating gap between the two teams with the
// home court folded in. Positive favors the home side.
func (c *MatchupCalculator) Calculate(game contracts.Game, home, away contracts.TeamForm) (float64, contracts.MatchupPayload, error) {
	payload := contracts.MatchupPayload{
		HomeNetRating: home.NetRating,
		AwayNetRating: away.NetRating,
		HomeCourtAdj:  homeCourtNetRating,
	}

	score := c.calculateScore(home, away)

	c.logger.WithFields(map[string]interface{}{
		"game_id":  game.GameID,
		"home_net": home.NetRating,
		"away_net": away.NetRating,
		"score":    score,
	}).Debug("Calculated matchup factor")

	return score, payload, nil
}

// calculateScore calculates matchup score (-1.0 ~ 1.0)
func (c *MatchupCalculator) calculateScore(home, away contracts.TeamForm) float64 {
	// Net rating gap with the home court folded in
	netDiff := home.NetRating - away.NetRating + homeCourtNetRating

	// Normalize: an 8-point net rating gap is blowout territory
	normalizedScore := math.Tanh(netDiff / 8.0)

	if normalizedScore > 1.0 {
		normalizedScore = 1.0
	} else if normalizedScore < -1.0 {
		normalizedScore = -1.0
	}

	return normalizedScore
}
