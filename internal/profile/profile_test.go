package profile

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeProfile(t *testing.T, dir, name string, p *Profile) string {
	t.Helper()
	data, err := yaml.Marshal(p)
	if err != nil {
		t.Fatalf("yaml.Marshal failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeProfile(t, dir, "v2.yaml", DefaultV2())

	loaded, yamlData, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(yamlData) == 0 {
		t.Error("expected raw yaml bytes")
	}

	if loaded.Meta.ProfileID != "delphi_nba_v2" {
		t.Errorf("profile_id = %s, want delphi_nba_v2", loaded.Meta.ProfileID)
	}
	if loaded.Aggregation.BaseMax != 10 {
		t.Errorf("base_max = %v, want 10", loaded.Aggregation.BaseMax)
	}
	if len(loaded.Decision.Ladder) != 5 {
		t.Errorf("ladder rungs = %d, want 5", len(loaded.Decision.Ladder))
	}
	if w, ok := loaded.Weights.EnabledWeight("matchup"); !ok || w != 25 {
		t.Errorf("matchup weight = %v enabled=%v, want 25 enabled", w, ok)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "typo.yaml")
	raw := []byte(`
meta:
  profile_id: typo_profile
  version: "1.0.0"
  sport_key: basketball_nba
wieghts:
  form:
    weight_percent: 100
    enabled: true
`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, _, err := Load(path); err == nil {
		t.Error("expected error for misspelled top-level key")
	}
}

func TestHash_Deterministic(t *testing.T) {
	p := DefaultV2()

	first, err := Hash(p)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := Hash(p)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if len(first) != 64 {
		t.Errorf("hash length = %d, want 64", len(first))
	}
	if first != second {
		t.Error("hash not deterministic for identical profile")
	}

	other, err := Hash(DefaultV1())
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if first == other {
		t.Error("different profiles produced identical hash")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"missing profile id", func(p *Profile) { p.Meta.ProfileID = "" }},
		{"no enabled weights", func(p *Profile) {
			for k, w := range p.Weights {
				w.Enabled = false
				p.Weights[k] = w
			}
		}},
		{"weight above 100", func(p *Profile) { w := p.Weights["form"]; w.WeightPercent = 120; p.Weights["form"] = w }},
		{"zero scaling constant", func(p *Profile) { p.Aggregation.ScalingConstant = 0 }},
		{"inverted scale bounds", func(p *Profile) { p.Aggregation.BaseMin = 10; p.Aggregation.BaseMax = 1 }},
		{"empty ladder", func(p *Profile) { p.Decision.Ladder = nil }},
		{"non-ascending ladder", func(p *Profile) { p.Decision.Ladder[1].MinConf = p.Decision.Ladder[0].MinConf }},
		{"ladder outside scale", func(p *Profile) { p.Decision.Ladder[0].MinConf = -1 }},
		{"ladder above max units", func(p *Profile) { p.Decision.MaxUnits = 2 }},
		{"zero side cap", func(p *Profile) { p.Decision.SideCap = 0 }},
		{"negative unit size", func(p *Profile) { p.Staking.UnitSizeUSD = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultV2()
			tt.mutate(p)
			if err := Validate(p); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(DefaultV1()); err != nil {
		t.Errorf("DefaultV1 invalid: %v", err)
	}
	if err := Validate(DefaultV2()); err != nil {
		t.Errorf("DefaultV2 invalid: %v", err)
	}
}

func TestWarnings(t *testing.T) {
	p := DefaultV2()
	if ws := Warnings(p); len(ws) != 0 {
		t.Errorf("expected no warnings for default profile, got %+v", ws)
	}

	w := p.Weights["form"]
	w.WeightPercent = 95
	p.Weights["form"] = w
	found := false
	for _, warn := range Warnings(p) {
		if warn.Code == "W-WEIGHT-SUM" {
			found = true
		}
	}
	if !found {
		t.Error("expected W-WEIGHT-SUM warning for lopsided weights")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "v1.yaml", DefaultV1())
	writeProfile(t, dir, "v2.yaml", DefaultV2())

	reg, err := LoadDir(dir, "delphi_nba_v2")
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	if got := reg.Active().Meta.ProfileID; got != "delphi_nba_v2" {
		t.Errorf("active profile = %s, want delphi_nba_v2", got)
	}
	if _, ok := reg.Get("delphi_nba_v1"); !ok {
		t.Error("v1 profile missing from registry")
	}
	if ids := reg.IDs(); len(ids) != 2 || ids[0] != "delphi_nba_v1" {
		t.Errorf("IDs() = %v, want sorted pair", ids)
	}
}

func TestLoadDir_MissingActive(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "v1.yaml", DefaultV1())

	if _, err := LoadDir(dir, "delphi_nba_v9"); err == nil {
		t.Error("expected error for unknown active profile")
	}
}

func TestToEngineConfig(t *testing.T) {
	cfg := DefaultV2().ToEngineConfig()

	if cfg.Aggregation.ScalingConstant != 0.04 {
		t.Errorf("ScalingConstant = %v, want 0.04", cfg.Aggregation.ScalingConstant)
	}
	if len(cfg.Decision.Ladder) != 5 {
		t.Errorf("ladder rungs = %d, want 5", len(cfg.Decision.Ladder))
	}
	if cfg.Decision.Ladder[4].Units != 5 {
		t.Errorf("top rung units = %d, want 5", cfg.Decision.Ladder[4].Units)
	}
	if cfg.MarketEdge.SpreadReference != 3.0 {
		t.Errorf("SpreadReference = %v, want 3.0", cfg.MarketEdge.SpreadReference)
	}
}
