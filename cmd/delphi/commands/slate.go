package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// slateCmd represents the slate command
var slateCmd = &cobra.Command{
	Use:   "slate",
	Short: "Run the pipeline for every game on a slate",
	Long: `Fetches the day's slate and runs the pipeline for every
(game, bet type) tuple: each game gets a TOTAL run and a SPREAD run.

Idempotency keys match the daily scheduled scan, so re-running a slate
replays stored outcomes instead of recomputing them.

Flags:
  --date     slate date (YYYY-MM-DD, default: today)
  --dry-run  run pipelines without persisting picks

Example:
  go run ./cmd/delphi slate
  go run ./cmd/delphi slate --date 2026-01-15
  go run ./cmd/delphi slate --dry-run`,
	RunE: runSlate,
}

var (
	slateDate   string
	slateDryRun bool
)

func init() {
	rootCmd.AddCommand(slateCmd)

	// Flags
	slateCmd.Flags().StringVar(&slateDate, "date", "", "slate date (YYYY-MM-DD, default: today)")
	slateCmd.Flags().BoolVar(&slateDryRun, "dry-run", false, "run without persisting picks")
}

func runSlate(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Delphi v2 Slate Scan ===")

	// Parse date
	date := time.Now()
	if slateDate != "" {
		parsed, err := time.Parse("2006-01-02", slateDate)
		if err != nil {
			return fmt.Errorf("invalid date format: %w", err)
		}
		date = parsed
	}

	app, err := newApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	fmt.Printf("\n📅 Slate Date: %s\n", date.Format("2006-01-02"))
	fmt.Printf("🏀 Sport: %s\n", app.cfg.Pipeline.SportKey)
	fmt.Printf("🔧 Dry Run: %v\n\n", slateDryRun)

	games, err := app.oddsClient.Slate(cmd.Context(), app.cfg.Pipeline.SportKey, date)
	if err != nil {
		return fmt.Errorf("fetch slate: %w", err)
	}
	if len(games) == 0 {
		fmt.Println("No games on the slate")
		return nil
	}

	fmt.Printf("Found %d games:\n", len(games))
	for _, game := range games {
		fmt.Printf("  - %s @ %s (%s)\n", game.AwayTeam, game.HomeTeam, game.StartsAt.Format("15:04"))
	}

	// One TOTAL and one SPREAD run per game, keyed like the daily scan
	dateKey := date.Format("20060102")
	requests := make([]contracts.RunParams, 0, len(games)*2)
	for _, game := range games {
		g := game
		for _, betType := range []contracts.BetType{contracts.BetTotal, contracts.BetSpread} {
			requests = append(requests, contracts.RunParams{
				GameID:         g.GameID,
				BetType:        betType,
				Game:           &g,
				IdempotencyKey: fmt.Sprintf("slate_%s_%s_%s", dateKey, g.GameID, betType),
				TriggeredBy:    contracts.TriggerManual,
				DryRun:         slateDryRun,
			})
		}
	}

	fmt.Printf("\n🚀 Running %d pipelines (%d workers)\n\n", len(requests), app.cfg.Pipeline.Workers)

	start := time.Now()
	outcomes := app.orchestrator.ExecuteAll(cmd.Context(), requests, app.cfg.Pipeline.Workers)

	// Collect picks and failures
	var picks []*contracts.Pick
	failed := 0
	for _, oc := range outcomes {
		if oc.Err != nil {
			failed++
			fmt.Printf("❌ %s %s: %v\n", oc.Params.GameID, oc.Params.BetType, oc.Err)
			continue
		}
		if oc.Run != nil && oc.Run.Pick != nil {
			picks = append(picks, oc.Run.Pick)
		}
	}

	fmt.Printf("\n✅ Slate completed in %.1fs: %d runs, %d picks, %d failed\n",
		time.Since(start).Seconds(), len(outcomes), len(picks), failed)

	if len(picks) == 0 {
		fmt.Println("\nNo playable edges today")
		return nil
	}

	fmt.Println()
	printPickTable(picks)

	// Slate-level dollar sizing
	if app.planner != nil {
		plan, planErr := app.planner.PlanSlate(picks)
		if planErr != nil {
			app.log.WithError(planErr).Warn("Failed to size slate")
			return nil
		}
		fmt.Printf("\nTotal stake: $%s (%s%% of bankroll)\n", plan.TotalStake, plan.TotalExposure)
		for _, warning := range plan.Warnings {
			fmt.Printf("⚠️  %s\n", warning)
		}
	}

	return nil
}
