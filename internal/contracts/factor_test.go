package contracts

import (
	"encoding/json"
	"testing"
)

func TestFactor_Contribution(t *testing.T) {
	f := Factor{Key: "pace", NormalizedValue: 0.5, WeightPercent: 50}

	expected := 25.0
	if got := f.Contribution(); got != expected {
		t.Errorf("Contribution() = %v, want %v", got, expected)
	}
}

func TestFactor_PayloadRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		factor Factor
	}{
		{
			name: "pace payload",
			factor: Factor{
				Key:             "pace",
				DisplayName:     "Pace environment",
				NormalizedValue: 0.42,
				WeightPercent:   20,
				Scope:           ScopeTotal,
				Payload:         PacePayload{HomePace: 101.2, AwayPace: 98.7, LeaguePace: 99.5},
			},
		},
		{
			name: "market edge payload with cap",
			factor: Factor{
				Key:             "market_edge_total",
				NormalizedValue: 0.995,
				WeightPercent:   100,
				Scope:           ScopeTotal,
				WasCapped:       true,
				CapReason:       "tanh saturated",
				Payload: MarketEdgePayload{
					BetType: BetTotal, Predicted: 231.5, MarketLine: 224.0,
					EdgePts: 7.5, EdgePct: 0.0335, ReferenceScale: 224.0, Sensitivity: 5.0,
				},
			},
		},
		{
			name: "no payload",
			factor: Factor{
				Key:             "rest",
				NormalizedValue: -0.3,
				WeightPercent:   10,
				Scope:           ScopeBoth,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.factor)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var got Factor
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if got.Key != tt.factor.Key || got.NormalizedValue != tt.factor.NormalizedValue {
				t.Errorf("round trip changed factor: got %+v, want %+v", got, tt.factor)
			}
			if got.WasCapped != tt.factor.WasCapped || got.CapReason != tt.factor.CapReason {
				t.Errorf("round trip lost cap info: got %+v", got)
			}
			if tt.factor.Payload == nil {
				if got.Payload != nil {
					t.Errorf("expected nil payload, got %+v", got.Payload)
				}
				return
			}
			if got.Payload == nil {
				t.Fatal("payload lost in round trip")
			}
			if got.Payload.PayloadKind() != tt.factor.Payload.PayloadKind() {
				t.Errorf("payload kind = %s, want %s", got.Payload.PayloadKind(), tt.factor.Payload.PayloadKind())
			}
			if got.Payload != tt.factor.Payload {
				t.Errorf("payload values changed: got %+v, want %+v", got.Payload, tt.factor.Payload)
			}
		})
	}
}

func TestFactor_UnmarshalUnknownPayloadKind(t *testing.T) {
	raw := `{"key":"x","normalized_value":0.1,"weight_percent":10,"scope":"BOTH","payload_kind":"telemetry","payload":{}}`

	var f Factor
	if err := json.Unmarshal([]byte(raw), &f); err == nil {
		t.Error("expected error for unknown payload kind, got nil")
	}
}

func TestMarketScope_AppliesTo(t *testing.T) {
	tests := []struct {
		scope MarketScope
		bt    BetType
		want  bool
	}{
		{ScopeBoth, BetTotal, true},
		{ScopeBoth, BetSpread, true},
		{ScopeTotal, BetTotal, true},
		{ScopeTotal, BetSpread, false},
		{ScopeSpread, BetSpread, true},
		{ScopeSpread, BetTotal, false},
	}

	for _, tt := range tests {
		if got := tt.scope.AppliesTo(tt.bt); got != tt.want {
			t.Errorf("%s.AppliesTo(%s) = %v, want %v", tt.scope, tt.bt, got, tt.want)
		}
	}
}

func TestWeightConfig_HasEnabled(t *testing.T) {
	tests := []struct {
		name    string
		weights WeightConfig
		want    bool
	}{
		{"empty config", WeightConfig{}, false},
		{"all disabled", WeightConfig{"form": {WeightPercent: 30, Enabled: false}}, false},
		{"enabled but zero weight", WeightConfig{"form": {WeightPercent: 0, Enabled: true}}, false},
		{"one live weight", WeightConfig{"form": {WeightPercent: 30, Enabled: true}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.weights.HasEnabled(); got != tt.want {
				t.Errorf("HasEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}
