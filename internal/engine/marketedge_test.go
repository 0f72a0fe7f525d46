package engine

import (
	"math"
	"testing"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

func TestBuildMarketEdgeFactor_Total(t *testing.T) {
	e := New(DefaultConfig())

	f, err := e.BuildMarketEdgeFactor(contracts.BetTotal, 231.5, 224.0)
	if err != nil {
		t.Fatalf("BuildMarketEdgeFactor() error = %v", err)
	}

	if f.WeightPercent != 100 {
		t.Errorf("WeightPercent = %v, want 100 (market factor is always full weight)", f.WeightPercent)
	}
	if f.Scope != contracts.ScopeTotal {
		t.Errorf("Scope = %s, want %s", f.Scope, contracts.ScopeTotal)
	}

	// edgePts 7.5, normalized against the market line itself.
	expected := math.Tanh(7.5 / 224.0 * 5.0)
	if diff := f.NormalizedValue - expected; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("NormalizedValue = %v, want %v", f.NormalizedValue, expected)
	}
	if f.WasCapped {
		t.Error("moderate total edge should not be flagged as capped")
	}

	payload, ok := f.Payload.(contracts.MarketEdgePayload)
	if !ok {
		t.Fatalf("Payload type = %T, want MarketEdgePayload", f.Payload)
	}
	if payload.EdgePts != 7.5 || payload.ReferenceScale != 224.0 {
		t.Errorf("payload = %+v, want edge 7.5 over reference 224", payload)
	}
}

func TestBuildMarketEdgeFactor_SpreadUsesFixedReference(t *testing.T) {
	e := New(DefaultConfig())

	// Model sees home by 2, market implies home by 1: one point of edge
	// against the 3.0 spread reference.
	f, err := e.BuildMarketEdgeFactor(contracts.BetSpread, 2.0, 1.0)
	if err != nil {
		t.Fatalf("BuildMarketEdgeFactor() error = %v", err)
	}

	expected := math.Tanh(1.0 / 3.0 * 5.0)
	if diff := f.NormalizedValue - expected; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("NormalizedValue = %v, want %v", f.NormalizedValue, expected)
	}
	if f.WasCapped {
		t.Errorf("signal %v below cap threshold should not flag", f.NormalizedValue)
	}
	if f.Scope != contracts.ScopeSpread {
		t.Errorf("Scope = %s, want %s", f.Scope, contracts.ScopeSpread)
	}
}

func TestBuildMarketEdgeFactor_SpreadSaturates(t *testing.T) {
	e := New(DefaultConfig())

	// 2.5 points of spread edge is decisive: tanh(2.5/3*5) > 0.99.
	f, err := e.BuildMarketEdgeFactor(contracts.BetSpread, 4.0, 1.5)
	if err != nil {
		t.Fatalf("BuildMarketEdgeFactor() error = %v", err)
	}

	if !f.WasCapped {
		t.Errorf("signal %v at/above 0.99 must set WasCapped", f.NormalizedValue)
	}
	if f.CapReason == "" {
		t.Error("capped factor must carry a cap reason")
	}
	if f.NormalizedValue < 0.99 || f.NormalizedValue > 1.0 {
		t.Errorf("NormalizedValue = %v, want within [0.99, 1.0]", f.NormalizedValue)
	}
}

func TestBuildMarketEdgeFactor_NegativeEdgeMirrors(t *testing.T) {
	e := New(DefaultConfig())

	over, err := e.BuildMarketEdgeFactor(contracts.BetTotal, 230.0, 224.0)
	if err != nil {
		t.Fatalf("BuildMarketEdgeFactor(over) error = %v", err)
	}
	under, err := e.BuildMarketEdgeFactor(contracts.BetTotal, 218.0, 224.0)
	if err != nil {
		t.Fatalf("BuildMarketEdgeFactor(under) error = %v", err)
	}

	if over.NormalizedValue != -under.NormalizedValue {
		t.Errorf("signals not mirrored: %v vs %v", over.NormalizedValue, under.NormalizedValue)
	}
}

func TestBuildMarketEdgeFactor_InvalidTotalLine(t *testing.T) {
	e := New(DefaultConfig())

	for _, line := range []float64{0, -3.5} {
		_, err := e.BuildMarketEdgeFactor(contracts.BetTotal, 220.0, line)
		if err == nil {
			t.Fatalf("expected validation error for total line %v", line)
		}
		if !contracts.IsKind(err, contracts.KindValidation) {
			t.Errorf("error kind = %s, want %s", contracts.KindOf(err), contracts.KindValidation)
		}
	}
}

func TestPredict_Anchoring(t *testing.T) {
	e := New(DefaultConfig())

	p := e.Predict(PredictInput{
		EdgeRawTotal:   39.0,
		EdgeRawSide:    -10.0,
		Baseline:       224.0,
		TotalAvailable: true,
		SideAvailable:  true,
	})

	// 224.0 + 39*0.12, 0 + (-10)*0.10
	wantTotal := 224.0 + 39.0*0.12
	wantMargin := -1.0
	if diff := p.PredictedTotal - wantTotal; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("PredictedTotal = %v, want %v", p.PredictedTotal, wantTotal)
	}
	if diff := p.PredictedMargin - wantMargin; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("PredictedMargin = %v, want %v", p.PredictedMargin, wantMargin)
	}
}

func TestPredict_UnavailableMarketStaysZero(t *testing.T) {
	e := New(DefaultConfig())

	p := e.Predict(PredictInput{
		EdgeRawTotal:   20.0,
		Baseline:       224.0,
		TotalAvailable: true,
		SideAvailable:  false,
	})

	if p.PredictedMargin != 0 {
		t.Errorf("PredictedMargin = %v, want 0 when side factors unavailable", p.PredictedMargin)
	}
	if p.SideAvailable {
		t.Error("SideAvailable should stay false")
	}
}
