package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// picksCmd represents the picks command
var picksCmd = &cobra.Command{
	Use:   "picks",
	Short: "Show finalized picks",
	Long: `Lists persisted picks with their dollar stake plans.

Flags:
  --date   show one calendar day (YYYY-MM-DD)
  --limit  number of recent picks (default: 20)

Example:
  go run ./cmd/delphi picks
  go run ./cmd/delphi picks --date 2026-01-15
  go run ./cmd/delphi picks --limit 50`,
	RunE: showPicks,
}

var (
	picksDate  string
	picksLimit int
)

func init() {
	rootCmd.AddCommand(picksCmd)

	// Flags
	picksCmd.Flags().StringVar(&picksDate, "date", "", "calendar day (YYYY-MM-DD)")
	picksCmd.Flags().IntVar(&picksLimit, "limit", 20, "number of recent picks")
}

func showPicks(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	var picks []*contracts.Pick
	if picksDate != "" {
		date, parseErr := time.Parse("2006-01-02", picksDate)
		if parseErr != nil {
			return fmt.Errorf("invalid date format: %w", parseErr)
		}
		picks, err = app.pickRepo.ListForDate(cmd.Context(), date)
	} else {
		picks, err = app.pickRepo.ListRecent(cmd.Context(), picksLimit)
	}
	if err != nil {
		return fmt.Errorf("list picks: %w", err)
	}

	if len(picks) == 0 {
		fmt.Println("No picks found")
		return nil
	}

	fmt.Printf("%d picks:\n\n", len(picks))
	printPickTable(picks)

	if app.planner != nil {
		plan, planErr := app.planner.PlanSlate(picks)
		if planErr != nil {
			app.log.WithError(planErr).Warn("Failed to size picks")
			return nil
		}
		fmt.Printf("\nTotal stake: $%s (%s%% of bankroll)\n", plan.TotalStake, plan.TotalExposure)
		for _, warning := range plan.Warnings {
			fmt.Printf("⚠️  %s\n", warning)
		}
	}

	return nil
}
