package contracts

import (
	"encoding/json"
	"fmt"
	"math"
)

// MarketScope declares which market a factor speaks to. Scoped
// aggregation uses it to split the factor set per bet type.
type MarketScope string

const (
	ScopeTotal  MarketScope = "TOTAL"
	ScopeSpread MarketScope = "SPREAD"
	ScopeBoth   MarketScope = "BOTH"
)

// AppliesTo reports whether a factor with this scope participates in
// the given bet type's aggregation.
func (m MarketScope) AppliesTo(bt BetType) bool {
	switch m {
	case ScopeBoth:
		return true
	case ScopeTotal:
		return bt == BetTotal
	case ScopeSpread:
		return bt == BetSpread
	default:
		return false
	}
}

// Factor is one weighted analytical signal feeding the aggregator.
// ⭐ SSOT: NormalizedValue는 생성 시점에 [-1, 1]로 클램프됨
type Factor struct {
	Key             string      `json:"key"`
	DisplayName     string      `json:"display_name"`
	NormalizedValue float64     `json:"normalized_value"` // [-1, 1]
	WeightPercent   float64     `json:"weight_percent"`   // [0, 100]
	Scope           MarketScope `json:"scope"`
	Payload         FactorPayload
	Notes           string `json:"notes,omitempty"`
	WasCapped       bool   `json:"was_capped"`
	CapReason       string `json:"cap_reason,omitempty"`
}

// NewFactor builds a factor with the value clamped to [-1, 1].
// Calculators whose raw score can leave the band go through here so an
// out-of-range value never reaches the aggregator.
func NewFactor(key, displayName string, value, weightPercent float64, scope MarketScope, payload FactorPayload) Factor {
	return Factor{
		Key:             key,
		DisplayName:     displayName,
		NormalizedValue: math.Max(-1, math.Min(1, value)),
		WeightPercent:   weightPercent,
		Scope:           scope,
		Payload:         payload,
	}
}

// Contribution returns the factor's share of edgeRaw.
func (f Factor) Contribution() float64 {
	return f.WeightPercent * f.NormalizedValue
}

// FactorPayload is the closed set of typed raw-input carriers. One
// variant per factor family; no open maps.
type FactorPayload interface {
	PayloadKind() string
}

// FormPayload carries recent-record inputs behind the form factor.
type FormPayload struct {
	HomeWinPct10 float64 `json:"home_win_pct_10"`
	AwayWinPct10 float64 `json:"away_win_pct_10"`
	HomeStreak   int     `json:"home_streak"`
	AwayStreak   int     `json:"away_streak"`
}

// MatchupPayload carries efficiency-rating inputs behind the matchup factor.
type MatchupPayload struct {
	HomeNetRating float64 `json:"home_net_rating"`
	AwayNetRating float64 `json:"away_net_rating"`
	HomeCourtAdj  float64 `json:"home_court_adj"`
}

// PacePayload carries tempo/scoring-environment inputs behind the pace factor.
type PacePayload struct {
	HomePace       float64 `json:"home_pace"`
	AwayPace       float64 `json:"away_pace"`
	LeaguePace     float64 `json:"league_pace"`
	CombinedOffRtg float64 `json:"combined_off_rtg"`
	CombinedDefRtg float64 `json:"combined_def_rtg"`
}

// InjuryPayload carries availability inputs behind the injury factor.
type InjuryPayload struct {
	HomeOutCount    int     `json:"home_out_count"`
	AwayOutCount    int     `json:"away_out_count"`
	HomeImpactScore float64 `json:"home_impact_score"`
	AwayImpactScore float64 `json:"away_impact_score"`
}

// RestPayload carries schedule-fatigue inputs behind the rest factor.
type RestPayload struct {
	HomeRestDays   int  `json:"home_rest_days"`
	AwayRestDays   int  `json:"away_rest_days"`
	HomeBackToBack bool `json:"home_back_to_back"`
	AwayBackToBack bool `json:"away_back_to_back"`
}

// MarketEdgePayload carries the model-vs-market comparison behind the
// market-edge factor built at S5.
type MarketEdgePayload struct {
	BetType        BetType `json:"bet_type"`
	Predicted      float64 `json:"predicted"`
	MarketLine     float64 `json:"market_line"`
	EdgePts        float64 `json:"edge_pts"`
	EdgePct        float64 `json:"edge_pct"`
	ReferenceScale float64 `json:"reference_scale"`
	Sensitivity    float64 `json:"sensitivity"`
}

func (FormPayload) PayloadKind() string       { return "form" }
func (MatchupPayload) PayloadKind() string    { return "matchup" }
func (PacePayload) PayloadKind() string       { return "pace" }
func (InjuryPayload) PayloadKind() string     { return "injury" }
func (RestPayload) PayloadKind() string       { return "rest" }
func (MarketEdgePayload) PayloadKind() string { return "market_edge" }

// factorJSON is the wire/DB form of Factor. Payload travels in a
// kind-discriminated envelope so the closed variant set survives a
// round trip through jsonb.
type factorJSON struct {
	Key             string          `json:"key"`
	DisplayName     string          `json:"display_name"`
	NormalizedValue float64         `json:"normalized_value"`
	WeightPercent   float64         `json:"weight_percent"`
	Scope           MarketScope     `json:"scope"`
	PayloadKind     string          `json:"payload_kind,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	WasCapped       bool            `json:"was_capped"`
	CapReason       string          `json:"cap_reason,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (f Factor) MarshalJSON() ([]byte, error) {
	out := factorJSON{
		Key:             f.Key,
		DisplayName:     f.DisplayName,
		NormalizedValue: f.NormalizedValue,
		WeightPercent:   f.WeightPercent,
		Scope:           f.Scope,
		Notes:           f.Notes,
		WasCapped:       f.WasCapped,
		CapReason:       f.CapReason,
	}
	if f.Payload != nil {
		raw, err := json.Marshal(f.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload for factor %s: %w", f.Key, err)
		}
		out.PayloadKind = f.Payload.PayloadKind()
		out.Payload = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (f *Factor) UnmarshalJSON(data []byte) error {
	var in factorJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	f.Key = in.Key
	f.DisplayName = in.DisplayName
	f.NormalizedValue = in.NormalizedValue
	f.WeightPercent = in.WeightPercent
	f.Scope = in.Scope
	f.Notes = in.Notes
	f.WasCapped = in.WasCapped
	f.CapReason = in.CapReason
	f.Payload = nil
	if in.PayloadKind == "" {
		return nil
	}
	payload, err := decodePayload(in.PayloadKind, in.Payload)
	if err != nil {
		return fmt.Errorf("failed to decode payload for factor %s: %w", f.Key, err)
	}
	f.Payload = payload
	return nil
}

func decodePayload(kind string, raw json.RawMessage) (FactorPayload, error) {
	var target FactorPayload
	switch kind {
	case "form":
		target = &FormPayload{}
	case "matchup":
		target = &MatchupPayload{}
	case "pace":
		target = &PacePayload{}
	case "injury":
		target = &InjuryPayload{}
	case "rest":
		target = &RestPayload{}
	case "market_edge":
		target = &MarketEdgePayload{}
	default:
		return nil, fmt.Errorf("unknown payload kind %q", kind)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, err
		}
	}
	switch p := target.(type) {
	case *FormPayload:
		return *p, nil
	case *MatchupPayload:
		return *p, nil
	case *PacePayload:
		return *p, nil
	case *InjuryPayload:
		return *p, nil
	case *RestPayload:
		return *p, nil
	case *MarketEdgePayload:
		return *p, nil
	}
	return nil, fmt.Errorf("unhandled payload kind %q", kind)
}

// FactorWeight is one entry of a profile's weight table.
type FactorWeight struct {
	WeightPercent float64 `json:"weight_percent" yaml:"weight_percent"`
	Enabled       bool    `json:"enabled" yaml:"enabled"`
}

// WeightConfig maps factor key → weight. Owned by the active capper
// profile; the engine fails closed when no enabled weights exist.
type WeightConfig map[string]FactorWeight

// EnabledWeight returns the weight for a key and whether the key is
// enabled in this config.
func (w WeightConfig) EnabledWeight(key string) (float64, bool) {
	fw, ok := w[key]
	if !ok || !fw.Enabled {
		return 0, false
	}
	return fw.WeightPercent, true
}

// HasEnabled reports whether any factor is enabled with weight > 0.
func (w WeightConfig) HasEnabled() bool {
	for _, fw := range w {
		if fw.Enabled && fw.WeightPercent > 0 {
			return true
		}
	}
	return false
}
