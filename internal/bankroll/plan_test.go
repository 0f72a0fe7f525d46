package bankroll

import (
	"strings"
	"testing"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/internal/profile"
)

func testPlanner(t *testing.T) *Planner {
	t.Helper()
	p, err := NewPlanner(profile.Staking{UnitSizeUSD: 100, BankrollUSD: 10000, MaxExposurePP: 6})
	if err != nil {
		t.Fatalf("NewPlanner() error = %v", err)
	}
	return p
}

func pickWithUnits(id string, units int) *contracts.Pick {
	return &contracts.Pick{PickID: id, RunID: "run_" + id, Units: units}
}

func TestPlanSizesStakeFromUnits(t *testing.T) {
	planner := testPlanner(t)

	plan, err := planner.Plan(pickWithUnits("p1", 3))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if got := plan.Stake.String(); got != "300" {
		t.Errorf("Stake = %s, want 300", got)
	}
	// 300 to win at -110 pays 272.73
	if got := plan.ToWin.String(); got != "272.73" {
		t.Errorf("ToWin = %s, want 272.73", got)
	}
	if got := plan.PctOfBankroll.String(); got != "3" {
		t.Errorf("PctOfBankroll = %s, want 3", got)
	}
	if len(plan.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none at 3%% exposure", plan.Warnings)
	}
}

func TestPlanWarnsOnHighVarianceStake(t *testing.T) {
	p, err := NewPlanner(profile.Staking{UnitSizeUSD: 300, BankrollUSD: 10000})
	if err != nil {
		t.Fatalf("NewPlanner() error = %v", err)
	}

	plan, err := p.Plan(pickWithUnits("p1", 2))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.Warnings) != 1 || !strings.Contains(plan.Warnings[0], "high variance") {
		t.Errorf("Warnings = %v, want a high variance warning at 6%%", plan.Warnings)
	}
}

func TestPlanRejectsZeroUnits(t *testing.T) {
	if _, err := testPlanner(t).Plan(pickWithUnits("p1", 0)); err == nil {
		t.Error("expected error for a zero-unit pick")
	}
	if _, err := testPlanner(t).Plan(nil); err == nil {
		t.Error("expected error for a nil pick")
	}
}

func TestPlanSlateChecksCombinedExposure(t *testing.T) {
	planner := testPlanner(t)

	slate, err := planner.PlanSlate([]*contracts.Pick{
		pickWithUnits("p1", 3),
		pickWithUnits("p2", 2),
		pickWithUnits("p3", 3),
	})
	if err != nil {
		t.Fatalf("PlanSlate() error = %v", err)
	}

	if got := slate.TotalStake.String(); got != "800" {
		t.Errorf("TotalStake = %s, want 800", got)
	}
	if got := slate.TotalExposure.String(); got != "8" {
		t.Errorf("TotalExposure = %s, want 8", got)
	}
	// 8% of bankroll against a 6% cap
	if len(slate.Warnings) != 1 || !strings.Contains(slate.Warnings[0], "exceeds") {
		t.Errorf("Warnings = %v, want an exposure cap warning", slate.Warnings)
	}
}

func TestNewPlannerValidatesConfig(t *testing.T) {
	if _, err := NewPlanner(profile.Staking{UnitSizeUSD: 0, BankrollUSD: 10000}); err == nil {
		t.Error("expected error for zero unit size")
	}
	if _, err := NewPlanner(profile.Staking{UnitSizeUSD: 100, BankrollUSD: -1}); err == nil {
		t.Error("expected error for negative bankroll")
	}
}
