package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "delphi",
	Short: "Delphi v2 - deterministic sports betting decision engine",
	Long: `Delphi v2 Unified CLI

Deterministic confidence engine for NBA totals and spreads.
One run walks the 7-stage pipeline from odds snapshot to pick.

Usage:
  go run ./cmd/delphi [command]

Examples:
  go run ./cmd/delphi api
  go run ./cmd/delphi run --game nba_20260115_BOS_LAL --bet-type TOTAL
  go run ./cmd/delphi slate
  go run ./cmd/delphi scheduler start
  go run ./cmd/delphi picks --limit 10`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
