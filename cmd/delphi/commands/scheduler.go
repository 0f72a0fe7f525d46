package commands

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/delphi/v2/backend/internal/realtime/feed"
	"github.com/wonny/delphi/v2/backend/internal/scheduler"
	"github.com/wonny/delphi/v2/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the scheduler",
	Long: `Starts the scheduler daemon or manages its jobs.

Registered jobs:
- slate_scan: daily slate scan, runs the pipeline for every game
- line_refresh: evicts stale entries from the live line cache

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs
  run     - run one job immediately
  status  - show job execution statistics

Example:
  go run ./cmd/delphi scheduler start
  go run ./cmd/delphi scheduler list
  go run ./cmd/delphi scheduler run slate_scan`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		Long: `Starts the scheduler and schedules every registered job.

When the realtime watcher is enabled the line feed manager starts
alongside the scheduler, and metrics are served on the metrics port.

Stop with Ctrl+C.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job execution statistics",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Delphi v2 Scheduler ===")

	app, err := newApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	sched, feedManager := buildScheduler(app)

	// Start line watcher first so the slate scan can seed it
	if feedManager != nil {
		if err := feedManager.Start(cmd.Context()); err != nil {
			return fmt.Errorf("start line watcher: %w", err)
		}
		defer feedManager.Stop()
	}

	// Serve metrics while the daemon runs
	if app.metrics != nil {
		go func() {
			addr := ":" + app.cfg.MetricsPort
			mux := http.NewServeMux()
			mux.Handle("/metrics", app.metrics.Handler())
			if serveErr := http.ListenAndServe(addr, mux); serveErr != nil {
				app.log.WithError(serveErr).Error("Metrics server stopped")
			}
		}()
		fmt.Printf("📊 Metrics on http://localhost:%s/metrics\n", app.cfg.MetricsPort)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	sched, _ := buildScheduler(app)

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	app, err := newApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	sched, _ := buildScheduler(app)

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	fmt.Println("Job started (running in background)")
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	sched, _ := buildScheduler(app)

	stats := sched.GetJobStats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for jobName, stat := range stats {
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}

		if stat.LastSuccess != nil {
			fmt.Printf("   Last Success: %s\n", stat.LastSuccess.Format("2006-01-02 15:04:05"))
		}

		if stat.LastFailure != nil {
			fmt.Printf("   Last Failure: %s\n", stat.LastFailure.Format("2006-01-02 15:04:05"))
		}

		fmt.Println()
	}

	return nil
}

// buildScheduler registers the pipeline jobs. The feed manager is nil
// when the realtime watcher is disabled; jobs tolerate that.
func buildScheduler(app *app) (*scheduler.Scheduler, *feed.FeedManager) {
	lineCache, _, feedManager := app.newLineWatcher()

	sched := scheduler.New(app.log)
	sched.AddJob(jobs.NewSlateScanJob(app.cfg, app.oddsClient, app.orchestrator, feedManager, app.log))
	sched.AddJob(jobs.NewLineRefreshJob(app.cfg, lineCache, feedManager, app.log))

	return sched, feedManager
}
