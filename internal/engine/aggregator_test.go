package engine

import (
	"math"
	"reflect"
	"testing"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

func testFactors(ws []float64, vs []float64) []contracts.Factor {
	factors := make([]contracts.Factor, len(ws))
	for i := range ws {
		factors[i] = contracts.Factor{
			Key:             "f" + string(rune('a'+i)),
			NormalizedValue: vs[i],
			WeightPercent:   ws[i],
			Scope:           contracts.ScopeBoth,
		}
	}
	return factors
}

func TestAggregate_WeightedSum(t *testing.T) {
	e := New(DefaultConfig())
	factors := testFactors([]float64{30, 20, 50}, []float64{0.6, -0.2, 0.5})

	result, err := e.Aggregate(factors)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	// 30*0.6 + 20*(-0.2) + 50*0.5 = 18 - 4 + 25
	expected := 39.0
	epsilon := 1e-9
	if diff := result.EdgeRaw - expected; diff > epsilon || diff < -epsilon {
		t.Errorf("EdgeRaw = %v, want %v", result.EdgeRaw, expected)
	}

	// edgeRaw this large saturates the sigmoid: edgePct → 1, conf → max.
	if result.EdgePct < 0.999999 {
		t.Errorf("EdgePct = %v, want saturated near 1", result.EdgePct)
	}
	if diff := result.ConfScore - 5.0; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("ConfScore = %v, want max of scale (5.0)", result.ConfScore)
	}
}

func TestAggregate_Symmetry(t *testing.T) {
	e := New(DefaultConfig())

	tests := []struct {
		name string
		ws   []float64
		vs   []float64
	}{
		{"saturating edge", []float64{30, 20, 50}, []float64{0.6, -0.2, 0.5}},
		{"moderate edge", []float64{30, 20, 50}, []float64{0.01, -0.005, 0.002}},
		{"tiny edge", []float64{10, 10}, []float64{0.001, -0.0005}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := e.Aggregate(testFactors(tt.ws, tt.vs))
			if err != nil {
				t.Fatalf("Aggregate(pos) error = %v", err)
			}

			neg := make([]float64, len(tt.vs))
			for i, v := range tt.vs {
				neg[i] = -v
			}
			mirrored, err := e.Aggregate(testFactors(tt.ws, neg))
			if err != nil {
				t.Fatalf("Aggregate(neg) error = %v", err)
			}

			if pos.EdgeRaw != -mirrored.EdgeRaw {
				t.Errorf("edgeRaw not mirrored: %v vs %v", pos.EdgeRaw, mirrored.EdgeRaw)
			}

			sum := pos.EdgePct + mirrored.EdgePct
			if math.Abs(sum-1.0) > 1e-12 {
				t.Errorf("edgePct sum = %v, want 1.0", sum)
			}
		})
	}
}

func TestAggregate_EmptyFactors(t *testing.T) {
	e := New(DefaultConfig())

	_, err := e.Aggregate(nil)
	if err == nil {
		t.Fatal("expected error for empty factor set")
	}
	if !contracts.IsKind(err, contracts.KindInsufficientSignal) {
		t.Errorf("error kind = %s, want %s", contracts.KindOf(err), contracts.KindInsufficientSignal)
	}
}

func TestAggregate_ScaleBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Aggregation.BaseMin = 1
	cfg.Aggregation.BaseMax = 10
	e := New(cfg)

	// Strongly negative edge → conf pinned to the scale floor.
	low, err := e.Aggregate(testFactors([]float64{100}, []float64{-1}))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if diff := low.ConfScore - 1.0; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("ConfScore = %v, want scale floor 1.0", low.ConfScore)
	}

	// Neutral edge → conf at scale midpoint.
	mid, err := e.Aggregate(testFactors([]float64{50, 50}, []float64{0.2, -0.2}))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if diff := mid.ConfScore - 5.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("ConfScore = %v, want scale midpoint 5.5", mid.ConfScore)
	}
}

func TestAggregate_ContributionsOrdered(t *testing.T) {
	e := New(DefaultConfig())
	factors := testFactors([]float64{30, 20, 50}, []float64{0.6, -0.2, 0.5})

	result, err := e.Aggregate(factors)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if len(result.Contributions) != 3 {
		t.Fatalf("len(Contributions) = %d, want 3", len(result.Contributions))
	}
	for i, c := range result.Contributions {
		if c.Key != factors[i].Key {
			t.Errorf("contribution %d key = %s, want %s (order must match input)", i, c.Key, factors[i].Key)
		}
		expected := factors[i].WeightPercent * factors[i].NormalizedValue
		if c.Contribution != expected {
			t.Errorf("contribution %d = %v, want %v", i, c.Contribution, expected)
		}
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	e := New(DefaultConfig())
	factors := testFactors([]float64{25, 35, 40}, []float64{0.11, -0.42, 0.07})

	first, err := e.Aggregate(factors)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	second, err := e.Aggregate(factors)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated aggregation diverged:\n%+v\n%+v", first, second)
	}
}
