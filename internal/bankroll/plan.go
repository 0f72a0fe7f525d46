// Package bankroll converts unit-sized picks into dollar stake plans.
// Money amounts use decimal arithmetic end to end; float64 never
// touches a dollar figure.
package bankroll

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/internal/profile"
)

// standardJuice is the American price books quote spreads and totals
// at almost uniformly. Stake plans are advisory sizing, not settlement
// amounts, so the flat assumption is acceptable here.
const standardJuice = -110

// StakePlan is the dollar sizing for one pick.
type StakePlan struct {
	PickID        string          `json:"pick_id"`
	RunID         string          `json:"run_id"`
	Units         int             `json:"units"`
	Stake         decimal.Decimal `json:"stake"`
	ToWin         decimal.Decimal `json:"to_win"`
	PctOfBankroll decimal.Decimal `json:"pct_of_bankroll"`
	Warnings      []string        `json:"warnings,omitempty"`
}

// SlatePlan aggregates the stake plans for one day's picks.
type SlatePlan struct {
	Plans         []StakePlan     `json:"plans"`
	TotalStake    decimal.Decimal `json:"total_stake"`
	TotalExposure decimal.Decimal `json:"total_exposure_pct"`
	Warnings      []string        `json:"warnings,omitempty"`
}

// Planner sizes stakes from the active profile's staking config.
type Planner struct {
	unitSize    decimal.Decimal
	bankroll    decimal.Decimal
	maxExposure decimal.Decimal // percent of bankroll per slate
}

// NewPlanner creates a planner from a profile's staking section.
func NewPlanner(staking profile.Staking) (*Planner, error) {
	if staking.UnitSizeUSD <= 0 {
		return nil, fmt.Errorf("unit size must be positive, got %.2f", staking.UnitSizeUSD)
	}
	if staking.BankrollUSD <= 0 {
		return nil, fmt.Errorf("bankroll must be positive, got %.2f", staking.BankrollUSD)
	}
	maxExposure := staking.MaxExposurePP
	if maxExposure <= 0 {
		maxExposure = 10 // percent; conservative default
	}
	return &Planner{
		unitSize:    decimal.NewFromFloat(staking.UnitSizeUSD),
		bankroll:    decimal.NewFromFloat(staking.BankrollUSD),
		maxExposure: decimal.NewFromFloat(maxExposure),
	}, nil
}

// Plan sizes one pick: stake = units × unit size, to-win at standard
// juice. A stake above 5% of bankroll carries a variance warning, the
// same threshold sharp stake sizers flag.
func (p *Planner) Plan(pick *contracts.Pick) (*StakePlan, error) {
	if pick == nil {
		return nil, fmt.Errorf("nil pick")
	}
	if pick.Units <= 0 {
		return nil, fmt.Errorf("pick %s has no units to stake", pick.PickID)
	}

	stake := p.unitSize.Mul(decimal.NewFromInt(int64(pick.Units)))
	pct := stake.Div(p.bankroll).Mul(decimal.NewFromInt(100)).Round(2)

	plan := &StakePlan{
		PickID:        pick.PickID,
		RunID:         pick.RunID,
		Units:         pick.Units,
		Stake:         stake.Round(2),
		ToWin:         toWin(stake, standardJuice).Round(2),
		PctOfBankroll: pct,
	}
	if pct.GreaterThan(decimal.NewFromInt(5)) {
		plan.Warnings = append(plan.Warnings,
			fmt.Sprintf("stake is %s%% of bankroll - high variance", pct))
	}
	return plan, nil
}

// PlanSlate sizes every pick of a slate and checks the combined
// exposure against the profile cap. Exceeding the cap warns rather
// than rejects: Delphi recommends, the capper decides.
func (p *Planner) PlanSlate(picks []*contracts.Pick) (*SlatePlan, error) {
	slate := &SlatePlan{TotalStake: decimal.Zero}
	for _, pick := range picks {
		plan, err := p.Plan(pick)
		if err != nil {
			return nil, fmt.Errorf("failed to plan pick %s: %w", pick.PickID, err)
		}
		slate.Plans = append(slate.Plans, *plan)
		slate.TotalStake = slate.TotalStake.Add(plan.Stake)
	}

	slate.TotalExposure = slate.TotalStake.Div(p.bankroll).Mul(decimal.NewFromInt(100)).Round(2)
	if slate.TotalExposure.GreaterThan(p.maxExposure) {
		slate.Warnings = append(slate.Warnings,
			fmt.Sprintf("slate exposure %s%% exceeds the %s%% cap", slate.TotalExposure, p.maxExposure))
	}
	return slate, nil
}

// toWin returns the profit a winning stake pays at American odds.
func toWin(stake decimal.Decimal, american int) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if american > 0 {
		return stake.Mul(decimal.NewFromInt(int64(american))).Div(hundred)
	}
	return stake.Mul(hundred).Div(decimal.NewFromInt(int64(-american)))
}
