package factors

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "console"})
}

func testGame() contracts.Game {
	return contracts.Game{
		GameID:   "nba-20260115-BOS-LAL",
		SportKey: "basketball_nba",
		HomeTeam: "Boston Celtics",
		AwayTeam: "Los Angeles Lakers",
		StartsAt: time.Date(2026, 1, 15, 19, 30, 0, 0, time.UTC),
	}
}

func testBuilder() *Builder {
	log := testLogger()
	return NewBuilder(
		NewFormCalculator(log),
		NewMatchupCalculator(log),
		NewPaceCalculator(log),
		NewInjuryCalculator(log),
		NewRestCalculator(log),
		log,
	)
}

func testContext() *contracts.GameContext {
	return &contracts.GameContext{
		Game: testGame(),
		HomeForm: contracts.TeamForm{
			Team:      "Boston Celtics",
			WinPct10:  0.8,
			Streak:    4,
			NetRating: 7.2,
			OffRating: 121.0,
			DefRating: 110.5,
			Pace:      100.8,
			RestDays:  2,
		},
		AwayForm: contracts.TeamForm{
			Team:       "Los Angeles Lakers",
			WinPct10:   0.5,
			Streak:     -1,
			NetRating:  1.5,
			OffRating:  115.2,
			DefRating:  113.9,
			Pace:       99.1,
			RestDays:   0,
			BackToBack: true,
		},
		Injuries: []contracts.InjuryReport{
			{Team: "Los Angeles Lakers", Player: "LeBron James", Status: "QUESTIONABLE", ImpactRank: 0.9},
		},
		LeaguePace:  99.5,
		BaselineAvg: 224.5,
	}
}

func allWeights() contracts.WeightConfig {
	return contracts.WeightConfig{
		KeyForm:     {WeightPercent: 20, Enabled: true},
		KeyMatchup:  {WeightPercent: 25, Enabled: true},
		KeyPace:     {WeightPercent: 20, Enabled: true},
		KeyInjuries: {WeightPercent: 20, Enabled: true},
		KeyRest:     {WeightPercent: 15, Enabled: true},
	}
}

func TestBuildAllFactorsEnabled(t *testing.T) {
	b := testBuilder()

	factors, err := b.Build(testContext(), allWeights())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Injuries and rest emit one factor per market
	wantKeys := []string{KeyForm, KeyMatchup, KeyPace, KeyInjuries, KeyInjuries, KeyRest, KeyRest}
	if len(factors) != len(wantKeys) {
		t.Fatalf("len(factors) = %d, want %d", len(factors), len(wantKeys))
	}
	for i, f := range factors {
		if f.Key != wantKeys[i] {
			t.Errorf("factor %d key = %s, want %s", i, f.Key, wantKeys[i])
		}
		if f.NormalizedValue < -1 || f.NormalizedValue > 1 {
			t.Errorf("factor %s value = %v, out of [-1, 1]", f.Key, f.NormalizedValue)
		}
		if f.Payload == nil {
			t.Errorf("factor %s has no payload", f.Key)
		}
	}

	spread := 0
	total := 0
	for _, f := range factors {
		if f.Scope.AppliesTo(contracts.BetSpread) {
			spread++
		}
		if f.Scope.AppliesTo(contracts.BetTotal) {
			total++
		}
	}
	if spread != 4 {
		t.Errorf("spread-scoped factors = %d, want 4 (form, matchup, injuries, rest)", spread)
	}
	if total != 3 {
		t.Errorf("total-scoped factors = %d, want 3 (pace, injuries, rest)", total)
	}
}

func TestBuildWeightPropagation(t *testing.T) {
	b := testBuilder()

	factors, err := b.Build(testContext(), allWeights())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	weights := allWeights()
	for _, f := range factors {
		want, ok := weights.EnabledWeight(f.Key)
		if !ok {
			t.Fatalf("factor %s not present in weight config", f.Key)
		}
		if f.WeightPercent != want {
			t.Errorf("factor %s weight = %v, want %v", f.Key, f.WeightPercent, want)
		}
	}
}

func TestBuildSkipsDisabledKeys(t *testing.T) {
	b := testBuilder()

	weights := contracts.WeightConfig{
		KeyForm:     {WeightPercent: 30, Enabled: true},
		KeyMatchup:  {WeightPercent: 20, Enabled: true},
		KeyPace:     {WeightPercent: 50, Enabled: true},
		KeyInjuries: {WeightPercent: 0, Enabled: false},
		KeyRest:     {WeightPercent: 0, Enabled: false},
	}

	factors, err := b.Build(testContext(), weights)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(factors) != 3 {
		t.Fatalf("len(factors) = %d, want 3 with injuries and rest disabled", len(factors))
	}
	for _, f := range factors {
		if f.Key == KeyInjuries || f.Key == KeyRest {
			t.Errorf("disabled factor %s was built", f.Key)
		}
	}
}

func TestBuildPayloadKinds(t *testing.T) {
	b := testBuilder()

	factors, err := b.Build(testContext(), allWeights())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	wantKinds := map[string]string{
		KeyForm:     "form",
		KeyMatchup:  "matchup",
		KeyPace:     "pace",
		KeyInjuries: "injury",
		KeyRest:     "rest",
	}
	for _, f := range factors {
		if got := f.Payload.PayloadKind(); got != wantKinds[f.Key] {
			t.Errorf("factor %s payload kind = %s, want %s", f.Key, got, wantKinds[f.Key])
		}
	}
}

func TestBuildNilContext(t *testing.T) {
	b := testBuilder()

	_, err := b.Build(nil, allWeights())
	if err == nil {
		t.Fatal("expected error for nil game context")
	}
	if !contracts.IsKind(err, contracts.KindValidation) {
		t.Errorf("error kind = %s, want %s", contracts.KindOf(err), contracts.KindValidation)
	}
}

func TestBuildNoEnabledWeights(t *testing.T) {
	b := testBuilder()

	tests := []struct {
		name    string
		weights contracts.WeightConfig
	}{
		{"empty config", contracts.WeightConfig{}},
		{"all disabled", contracts.WeightConfig{
			KeyForm: {WeightPercent: 30, Enabled: false},
		}},
		{"only unknown keys", contracts.WeightConfig{
			"sentiment": {WeightPercent: 50, Enabled: true},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(testContext(), tt.weights)
			if err == nil {
				t.Fatal("expected configuration error")
			}
			if !contracts.IsKind(err, contracts.KindConfiguration) {
				t.Errorf("error kind = %s, want %s", contracts.KindOf(err), contracts.KindConfiguration)
			}
		})
	}
}

// brokenPaceCalc stands in for a calculator hitting bad input.
type brokenPaceCalc struct{}

func (brokenPaceCalc) Calculate(game contracts.Game, home, away contracts.TeamForm, leaguePace float64) (float64, contracts.PacePayload, error) {
	return 0, contracts.PacePayload{}, errors.New("league pace unavailable")
}

func TestBuildCalculatorFailureFailsBuild(t *testing.T) {
	b := testBuilder()
	b.pace = brokenPaceCalc{}

	factors, err := b.Build(testContext(), allWeights())
	if err == nil {
		t.Fatalf("Build() = %d factors, want failure when an enabled calculator errors", len(factors))
	}
	if !contracts.IsKind(err, contracts.KindValidation) {
		t.Errorf("error kind = %s, want %s", contracts.KindOf(err), contracts.KindValidation)
	}
	if !strings.Contains(err.Error(), "pace") {
		t.Errorf("error = %v, want the failing family named", err)
	}
}

func TestBuildSingleTotalFactor(t *testing.T) {
	b := testBuilder()

	weights := contracts.WeightConfig{
		KeyPace: {WeightPercent: 100, Enabled: true},
	}

	factors, err := b.Build(testContext(), weights)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(factors) != 1 {
		t.Fatalf("len(factors) = %d, want 1", len(factors))
	}
	if factors[0].Scope != contracts.ScopeTotal {
		t.Errorf("scope = %s, want %s", factors[0].Scope, contracts.ScopeTotal)
	}
	if factors[0].Scope.AppliesTo(contracts.BetSpread) {
		t.Error("pace factor must not participate in spread aggregation")
	}
}
