package commands

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// printRun prints one run's outcome: status, stage trail, and the pick
// with its stake sizing when one was made.
func printRun(a *app, run *contracts.Run) {
	if run.Status == contracts.RunComplete {
		fmt.Println("\n✅ Run Completed")
	} else {
		fmt.Println("\n❌ Run Failed")
	}
	fmt.Println()

	fmt.Printf("Run ID: %s\n", run.RunID)
	fmt.Printf("Status: %s (%s)\n", run.Status, run.State)
	fmt.Printf("Profile: %s @ %s\n", run.ProfileID, shortHash(run.ProfileHash))
	if run.FinishedAt != nil {
		fmt.Printf("Duration: %.2fs\n", run.FinishedAt.Sub(run.StartedAt).Seconds())
	}

	fmt.Println("\nStages:")
	for _, st := range run.Stages {
		fmt.Printf("  %s %s (%dms)\n", stageIcon(st.Status), st.Stage, st.DurationMS)
		if st.Error != "" {
			fmt.Printf("      %s\n", st.Error)
		}
	}

	if run.ErrKind != "" {
		fmt.Printf("\nError: [%s] at %s: %s\n", run.ErrKind, run.ErrStage, run.ErrMsg)
	}

	if run.Pick != nil {
		printPick(a, run.Pick)
	} else if run.Status == contracts.RunComplete {
		fmt.Println("\nNo pick: confidence below the ladder floor (PASS)")
	}
}

// printPick prints the pick and its dollar sizing.
func printPick(a *app, pick *contracts.Pick) {
	fmt.Println("\n🎯 Pick:")
	fmt.Printf("  Selection: %s %.1f\n", pick.Selection, pick.Line())
	fmt.Printf("  Units: %d\n", pick.Units)
	fmt.Printf("  Confidence: %.2f\n", pick.Confidence)
	fmt.Printf("  Edge: %+.2f pts\n", pick.EdgePts)
	if pick.Narrative != "" {
		fmt.Printf("  Narrative: %s\n", pick.Narrative)
	}

	if a.planner != nil && pick.Units > 0 {
		plan, err := a.planner.Plan(pick)
		if err != nil {
			fmt.Printf("  Stake: unavailable (%v)\n", err)
			return
		}
		fmt.Printf("  Stake: $%s to win $%s (%s%% of bankroll)\n",
			plan.Stake, plan.ToWin, plan.PctOfBankroll)
		for _, warning := range plan.Warnings {
			fmt.Printf("  ⚠️  %s\n", warning)
		}
	}
}

// printPickTable renders picks as a terminal table.
func printPickTable(picks []*contracts.Pick) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Game", "Bet", "Pick", "Line", "Units", "Conf", "Edge", "Created")

	for _, p := range picks {
		table.Append(
			p.GameID,
			string(p.BetType),
			string(p.Selection),
			fmt.Sprintf("%.1f", p.Line()),
			fmt.Sprintf("%d", p.Units),
			fmt.Sprintf("%.2f", p.Confidence),
			fmt.Sprintf("%+.2f", p.EdgePts),
			p.CreatedAt.Format("01-02 15:04"),
		)
	}

	table.Render()
}

func stageIcon(status contracts.StageStatus) string {
	switch status {
	case contracts.StageOK:
		return "✅"
	case contracts.StageErrored:
		return "❌"
	default:
		return "⏭"
	}
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}
