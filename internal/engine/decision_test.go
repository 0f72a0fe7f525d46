package engine

import (
	"testing"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

func TestDecide_LadderBoundaries(t *testing.T) {
	e := New(DefaultConfig()) // rungs at 3.0 / 3.75 / 4.5, max 3 units

	tests := []struct {
		conf        float64
		wantVerdict contracts.Verdict
		wantUnits   int
	}{
		{2.99, contracts.VerdictPass, 0},
		{3.00, contracts.VerdictPick, 1},
		{3.74, contracts.VerdictPick, 1},
		{3.75, contracts.VerdictPick, 2},
		{4.49, contracts.VerdictPick, 2},
		{4.50, contracts.VerdictPick, 3},
		{5.00, contracts.VerdictPick, 3},
	}

	for _, tt := range tests {
		d, err := e.Decide(DecideInput{
			ConfScore:    tt.conf,
			EdgeTotalPts: 5.0,
			MarketTotal:  224.0,
			MarketSpread: -3.5,
		})
		if err != nil {
			t.Fatalf("Decide(conf=%v) error = %v", tt.conf, err)
		}
		if d.Verdict != tt.wantVerdict {
			t.Errorf("conf %v: verdict = %s, want %s", tt.conf, d.Verdict, tt.wantVerdict)
		}
		if d.Units != tt.wantUnits {
			t.Errorf("conf %v: units = %d, want %d", tt.conf, d.Units, tt.wantUnits)
		}
	}
}

func TestDecide_BetTypeTieBreak(t *testing.T) {
	e := New(DefaultConfig()) // caps ±6 side, ±12 total

	tests := []struct {
		name      string
		side      float64
		total     float64
		wantType  contracts.BetType
		wantPick  contracts.Selection
	}{
		// |3|/6 = 0.50 beats |5|/12 ≈ 0.42
		{"side wins on normalized magnitude", 3.0, 5.0, contracts.BetSpread, contracts.SelectionHome},
		// |2|/6 ≈ 0.33 loses to |6|/12 = 0.50
		{"total wins on normalized magnitude", 2.0, 6.0, contracts.BetTotal, contracts.SelectionOver},
		// exact tie 0.50 vs 0.50 goes to the total
		{"exact tie goes to total", 3.0, 6.0, contracts.BetTotal, contracts.SelectionOver},
		{"negative side edge picks away", -4.0, 1.0, contracts.BetSpread, contracts.SelectionAway},
		{"negative total edge picks under", 0.5, -8.0, contracts.BetTotal, contracts.SelectionUnder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := e.Decide(DecideInput{
				ConfScore:    4.8,
				EdgeSidePts:  tt.side,
				EdgeTotalPts: tt.total,
				MarketTotal:  224.0,
				MarketSpread: -3.5,
			})
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			if d.BetType != tt.wantType {
				t.Errorf("BetType = %s, want %s", d.BetType, tt.wantType)
			}
			if d.Selection != tt.wantPick {
				t.Errorf("Selection = %s, want %s", d.Selection, tt.wantPick)
			}
		})
	}
}

func TestDecide_CapsClampAndFlag(t *testing.T) {
	e := New(DefaultConfig())

	d, err := e.Decide(DecideInput{
		ConfScore:    4.8,
		EdgeSidePts:  9.0,
		EdgeTotalPts: -15.0,
		MarketTotal:  224.0,
		MarketSpread: -3.5,
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}

	if d.EdgeSidePts != 6.0 || !d.CappedSide {
		t.Errorf("side edge = %v capped=%v, want exactly 6.0 capped", d.EdgeSidePts, d.CappedSide)
	}
	if d.EdgeTotalPts != -12.0 || !d.CappedTotal {
		t.Errorf("total edge = %v capped=%v, want exactly -12.0 capped", d.EdgeTotalPts, d.CappedTotal)
	}

	// Both hit their cap (normalized 1.0 each), so the tie goes total.
	if d.BetType != contracts.BetTotal {
		t.Errorf("BetType = %s, want %s on capped tie", d.BetType, contracts.BetTotal)
	}
	if d.Selection != contracts.SelectionUnder {
		t.Errorf("Selection = %s, want %s for negative total edge", d.Selection, contracts.SelectionUnder)
	}
}

func TestDecide_EdgeExactlyAtCapNotFlagged(t *testing.T) {
	e := New(DefaultConfig())

	d, err := e.Decide(DecideInput{
		ConfScore:    4.0,
		EdgeSidePts:  6.0,
		EdgeTotalPts: 0,
		MarketTotal:  224.0,
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if d.CappedSide {
		t.Error("edge exactly at cap was not clamped, must not flag")
	}
	if d.EdgeSidePts != 6.0 {
		t.Errorf("EdgeSidePts = %v, want untouched 6.0", d.EdgeSidePts)
	}
}

func TestDecide_NoDisagreementPasses(t *testing.T) {
	e := New(DefaultConfig())

	// High confidence but zero edge on both markets: nothing to bet.
	d, err := e.Decide(DecideInput{
		ConfScore:    5.0,
		EdgeSidePts:  0,
		EdgeTotalPts: 0,
		MarketTotal:  224.0,
		MarketSpread: -3.5,
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if d.Verdict != contracts.VerdictPass {
		t.Errorf("Verdict = %s, want PASS with no market disagreement", d.Verdict)
	}
	if d.Units != 0 {
		t.Errorf("Units = %d, want 0", d.Units)
	}
}

func TestDecide_FiveTierLadder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Aggregation.BaseMin = 1
	cfg.Aggregation.BaseMax = 10
	cfg.Decision.Ladder = []UnitStep{
		{MinConf: 6.0, Units: 1},
		{MinConf: 6.8, Units: 2},
		{MinConf: 7.6, Units: 3},
		{MinConf: 8.4, Units: 4},
		{MinConf: 9.2, Units: 5},
	}
	cfg.Decision.MaxUnits = 5
	e := New(cfg)

	tests := []struct {
		conf      float64
		wantUnits int
	}{
		{5.9, 0},
		{6.0, 1},
		{7.6, 3},
		{9.2, 5},
		{10.0, 5},
	}

	for _, tt := range tests {
		d, err := e.Decide(DecideInput{ConfScore: tt.conf, EdgeTotalPts: 4.0, MarketTotal: 224.0})
		if err != nil {
			t.Fatalf("Decide(conf=%v) error = %v", tt.conf, err)
		}
		if d.Units != tt.wantUnits {
			t.Errorf("conf %v: units = %d, want %d", tt.conf, d.Units, tt.wantUnits)
		}
	}
}

func TestDecide_MaxUnitsClamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Decision.Ladder = []UnitStep{{MinConf: 3.0, Units: 8}}
	cfg.Decision.MaxUnits = 3
	e := New(cfg)

	d, err := e.Decide(DecideInput{ConfScore: 4.0, EdgeTotalPts: 4.0, MarketTotal: 224.0})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if d.Units != 3 {
		t.Errorf("Units = %d, want clamped to max 3", d.Units)
	}
}

func TestDecide_BadLadderFailsClosed(t *testing.T) {
	tests := []struct {
		name   string
		ladder []UnitStep
	}{
		{"empty ladder", nil},
		{"non-ascending ladder", []UnitStep{{MinConf: 3.0, Units: 1}, {MinConf: 3.0, Units: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Decision.Ladder = tt.ladder
			e := New(cfg)

			_, err := e.Decide(DecideInput{ConfScore: 4.0, EdgeTotalPts: 4.0})
			if err == nil {
				t.Fatal("expected configuration error")
			}
			if !contracts.IsKind(err, contracts.KindConfiguration) {
				t.Errorf("error kind = %s, want %s", contracts.KindOf(err), contracts.KindConfiguration)
			}
		})
	}
}

// Scenario from the product playbook: three factors land edgeRaw at 39,
// the sigmoid saturates, and the run picks at maximum stake.
func TestEngine_SaturatedScenario(t *testing.T) {
	e := New(DefaultConfig())

	result, err := e.Aggregate(testFactors([]float64{30, 20, 50}, []float64{0.6, -0.2, 0.5}))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	d, err := e.Decide(DecideInput{
		ConfScore:    result.ConfScore,
		EdgeTotalPts: 7.0,
		MarketTotal:  224.0,
		MarketSpread: -3.5,
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}

	if d.Verdict != contracts.VerdictPick {
		t.Fatalf("Verdict = %s, want PICK", d.Verdict)
	}
	if d.Units != 3 {
		t.Errorf("Units = %d, want ladder maximum 3", d.Units)
	}
}
