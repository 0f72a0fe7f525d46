package factors

import (
	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// Factor keys. These must match the weight table keys of the active
// capper profile.
const (
	KeyForm     = "form"
	KeyMatchup  = "matchup"
	KeyPace     = "pace"
	KeyInjuries = "injuries"
	KeyRest     = "rest"
)

// Calculator seams. The concrete calculators satisfy these; tests
// substitute failing fakes.
type formCalc interface {
	Calculate(game contracts.Game, home, away contracts.TeamForm) (float64, contracts.FormPayload, error)
}

type matchupCalc interface {
	Calculate(game contracts.Game, home, away contracts.TeamForm) (float64, contracts.MatchupPayload, error)
}

type paceCalc interface {
	Calculate(game contracts.Game, home, away contracts.TeamForm, leaguePace float64) (float64, contracts.PacePayload, error)
}

type injuryCalc interface {
	Calculate(game contracts.Game, reports []contracts.InjuryReport) (float64, float64, contracts.InjuryPayload, error)
}

type restCalc interface {
	Calculate(game contracts.Game, home, away contracts.TeamForm) (float64, float64, contracts.RestPayload, error)
}

// Builder runs every enabled factor calculator over a fetched game
// context and assembles the weighted factor set handed to the
// aggregator. Families that speak to both markets (injuries, rest)
// emit one factor per scope under the same key; scoped filtering keeps
// a single aggregation from ever seeing both.
// ⭐ SSOT: 팩터 조립 오케스트레이션은 여기서만
type Builder struct {
	form     formCalc
	matchup  matchupCalc
	pace     paceCalc
	injuries injuryCalc
	rest     restCalc

	logger *logger.Logger
}

// NewBuilder creates a new factor builder
func NewBuilder(
	form *FormCalculator,
	matchup *MatchupCalculator,
	pace *PaceCalculator,
	injuries *InjuryCalculator,
	rest *RestCalculator,
	log *logger.Logger,
) *Builder {
	return &Builder{
		form:     form,
		matchup:  matchup,
		pace:     pace,
		injuries: injuries,
		rest:     rest,
		logger:   log,
	}
}

// Build generates the factor set for a single game. Disabled keys are
// skipped; weights come from the profile untouched.
func (b *Builder) Build(gameCtx *contracts.GameContext, weights contracts.WeightConfig) ([]contracts.Factor, error) {
	if gameCtx == nil {
		return nil, contracts.ValidationError("", "nil game context")
	}
	if !weights.HasEnabled() {
		return nil, contracts.ConfigurationError("", "no enabled factor weights in profile")
	}

	game := gameCtx.Game

	b.logger.WithFields(map[string]interface{}{
		"game_id": game.GameID,
		"home":    game.HomeTeam,
		"away":    game.AwayTeam,
	}).Debug("Starting factor build")

	out := make([]contracts.Factor, 0, 7)

	// An enabled calculator that errors fails the whole build: a run
	// must never quietly decide on fewer factors than its profile pays
	// weight to.
	if w, ok := weights.EnabledWeight(KeyForm); ok {
		score, payload, err := b.form.Calculate(game, gameCtx.HomeForm, gameCtx.AwayForm)
		if err != nil {
			return nil, contracts.ValidationError("", "form factor calculation failed: %v", err)
		}
		out = append(out, contracts.NewFactor(KeyForm, "Recent form", score, w, contracts.ScopeSpread, payload))
	}

	if w, ok := weights.EnabledWeight(KeyMatchup); ok {
		score, payload, err := b.matchup.Calculate(game, gameCtx.HomeForm, gameCtx.AwayForm)
		if err != nil {
			return nil, contracts.ValidationError("", "matchup factor calculation failed: %v", err)
		}
		out = append(out, contracts.NewFactor(KeyMatchup, "Matchup efficiency", score, w, contracts.ScopeSpread, payload))
	}

	if w, ok := weights.EnabledWeight(KeyPace); ok {
		score, payload, err := b.pace.Calculate(game, gameCtx.HomeForm, gameCtx.AwayForm, gameCtx.LeaguePace)
		if err != nil {
			return nil, contracts.ValidationError("", "pace factor calculation failed: %v", err)
		}
		out = append(out, contracts.NewFactor(KeyPace, "Pace environment", score, w, contracts.ScopeTotal, payload))
	}

	if w, ok := weights.EnabledWeight(KeyInjuries); ok {
		side, total, payload, err := b.injuries.Calculate(game, gameCtx.Injuries)
		if err != nil {
			return nil, contracts.ValidationError("", "injury factor calculation failed: %v", err)
		}
		out = append(out,
			contracts.NewFactor(KeyInjuries, "Injury availability", side, w, contracts.ScopeSpread, payload),
			contracts.NewFactor(KeyInjuries, "Injury availability", total, w, contracts.ScopeTotal, payload),
		)
	}

	if w, ok := weights.EnabledWeight(KeyRest); ok {
		side, total, payload, err := b.rest.Calculate(game, gameCtx.HomeForm, gameCtx.AwayForm)
		if err != nil {
			return nil, contracts.ValidationError("", "rest factor calculation failed: %v", err)
		}
		out = append(out,
			contracts.NewFactor(KeyRest, "Rest advantage", side, w, contracts.ScopeSpread, payload),
			contracts.NewFactor(KeyRest, "Rest advantage", total, w, contracts.ScopeTotal, payload),
		)
	}

	// Enabled weights that match no known key leave nothing to aggregate
	if len(out) == 0 {
		return nil, contracts.ConfigurationError("", "profile enables no known factor keys")
	}

	b.logger.WithFields(map[string]interface{}{
		"game_id":      game.GameID,
		"factor_count": len(out),
	}).Info("Factor build completed")

	return out, nil
}
