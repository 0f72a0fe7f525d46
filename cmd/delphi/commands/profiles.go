package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/delphi/v2/backend/internal/profile"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// profilesCmd represents the profiles command
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect capper profiles",
	Long: `Lists the loaded capper profiles. Profiles change by deployment,
never at runtime; the active one stamps every run's decision.

Example:
  go run ./cmd/delphi profiles
  go run ./cmd/delphi profiles show delphi_nba_v2`,
	RunE: listProfiles,
}

var profilesShowCmd = &cobra.Command{
	Use:   "show [profile_id]",
	Short: "Show one profile's configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  showProfile,
}

var profilesValidateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate profile YAML files before deploying them",
	Long: `Loads every *.yaml profile in the directory (default: the configured
profile dir) and reports validation errors and advisory warnings.

Example:
  go run ./cmd/delphi profiles validate config/profiles`,
	Args: cobra.MaximumNArgs(1),
	RunE: validateProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	profilesCmd.AddCommand(profilesValidateCmd)
}

// Profile inspection works without a database.
func loadProfileRegistry() (*profile.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)
	return loadRegistry(cfg, log)
}

func listProfiles(cmd *cobra.Command, args []string) error {
	registry, err := loadProfileRegistry()
	if err != nil {
		return err
	}

	active := registry.Active()

	fmt.Println("Loaded profiles:")
	for _, id := range registry.IDs() {
		marker := " "
		if active != nil && id == active.Meta.ProfileID {
			marker = "*"
		}
		p, _ := registry.Get(id)
		fmt.Printf("  %s %s (v%s, %s)\n", marker, id, p.Meta.Version, p.Meta.SportKey)
	}
	fmt.Println("\n* = active profile")

	return nil
}

func showProfile(cmd *cobra.Command, args []string) error {
	registry, err := loadProfileRegistry()
	if err != nil {
		return err
	}

	id := args[0]
	p, ok := registry.Get(id)
	if !ok {
		return fmt.Errorf("profile %q not found (have: %v)", id, registry.IDs())
	}

	hash, err := profile.Hash(p)
	if err != nil {
		return fmt.Errorf("hash profile: %w", err)
	}

	fmt.Printf("=== Profile: %s ===\n\n", id)
	fmt.Printf("Version: %s\n", p.Meta.Version)
	fmt.Printf("Sport: %s\n", p.Meta.SportKey)
	fmt.Printf("Hash: %s\n", shortHash(hash))
	if p.Meta.Notes != "" {
		fmt.Printf("Notes: %s\n", p.Meta.Notes)
	}

	fmt.Println("\nFactor weights:")
	keys := make([]string, 0, len(p.Weights))
	for key := range p.Weights {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		w := p.Weights[key]
		state := "enabled"
		if !w.Enabled {
			state = "disabled"
		}
		fmt.Printf("  %-10s %5.1f%%  (%s)\n", key, w.WeightPercent, state)
	}

	fmt.Println("\nDecision ladder:")
	for _, step := range p.Decision.Ladder {
		fmt.Printf("  conf >= %.2f: %d unit(s)\n", step.MinConf, step.Units)
	}
	fmt.Printf("  max units: %d, side cap: %.1f, total cap: %.1f\n",
		p.Decision.MaxUnits, p.Decision.SideCap, p.Decision.TotalCap)

	fmt.Println("\nStaking:")
	fmt.Printf("  unit size: $%.0f, bankroll: $%.0f\n", p.Staking.UnitSizeUSD, p.Staking.BankrollUSD)

	return nil
}

func validateProfiles(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	} else {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dir = cfg.Pipeline.ProfileDir
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read profile dir %s: %w", dir, err)
	}

	fmt.Printf("=== Validating profiles in %s ===\n\n", dir)

	checked := 0
	failed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		checked++

		p, _, err := profile.Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			failed++
			fmt.Printf("❌ %s: %v\n", entry.Name(), err)
			continue
		}

		fmt.Printf("✅ %s (%s v%s)\n", entry.Name(), p.Meta.ProfileID, p.Meta.Version)
		for _, w := range profile.Warnings(p) {
			fmt.Printf("   ⚠️  %s: %s\n", w.Code, w.Message)
		}
	}

	if checked == 0 {
		return fmt.Errorf("no *.yaml profiles found in %s", dir)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d profile(s) failed validation", failed, checked)
	}

	fmt.Printf("\n✅ %d profile(s) valid\n", checked)
	return nil
}
