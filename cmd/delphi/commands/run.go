package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one pipeline run",
	Long: `Runs the 7-stage pipeline for a single (game, bet type) tuple.

Stages:
- S1: Validate inputs and profile
- S2: Freeze the odds snapshot
- S3: Gather stats and injuries
- S4: Compute weighted factors
- S5: Baseline prediction
- S6: Market edge adjustment
- S7: Decision and pick

Flags:
  --game      game id (required)
  --bet-type  TOTAL or SPREAD (default: TOTAL)
  --dry-run   run the pipeline without persisting a pick
  --idem-key  idempotency key; re-running the same key replays the stored outcome

Example:
  go run ./cmd/delphi run --game nba_20260115_BOS_LAL --bet-type TOTAL
  go run ./cmd/delphi run --game nba_20260115_BOS_LAL --bet-type SPREAD --dry-run`,
	RunE: runPipeline,
}

var (
	runGame    string
	runBetType string
	runDryRun  bool
	runIdemKey string
)

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags
	runCmd.Flags().StringVar(&runGame, "game", "", "game id (required)")
	runCmd.Flags().StringVar(&runBetType, "bet-type", "TOTAL", "bet type (TOTAL|SPREAD)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "run without persisting a pick")
	runCmd.Flags().StringVar(&runIdemKey, "idem-key", "", "idempotency key")
	_ = runCmd.MarkFlagRequired("game")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Delphi v2 Pipeline Run ===")

	betType := strings.ToUpper(runBetType)
	if !contracts.IsValidBetType(betType) {
		return fmt.Errorf("invalid bet type %q (want TOTAL or SPREAD)", runBetType)
	}

	app, err := newApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	fmt.Printf("\n🏀 Game: %s\n", runGame)
	fmt.Printf("🎯 Bet Type: %s\n", betType)
	fmt.Printf("🔧 Dry Run: %v\n", runDryRun)
	fmt.Printf("📋 Profile: %s\n\n", app.registry.Active().Meta.ProfileID)

	params := contracts.RunParams{
		GameID:         runGame,
		BetType:        contracts.BetType(betType),
		IdempotencyKey: runIdemKey,
		TriggeredBy:    contracts.TriggerManual,
		DryRun:         runDryRun,
	}

	fmt.Println("🚀 Starting pipeline run")

	run, runErr := app.orchestrator.Execute(cmd.Context(), params)
	if run != nil {
		printRun(app, run)
	}
	if runErr != nil {
		return fmt.Errorf("pipeline run failed: %w", runErr)
	}

	return nil
}
