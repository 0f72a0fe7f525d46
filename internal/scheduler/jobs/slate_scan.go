package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/delphi/v2/backend/internal/brain"
	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/internal/realtime/feed"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// SlateScanJob runs the decision pipeline over the day's full slate.
// Schedule: morning, hours before the first tip, so lines are open
// but stable.
type SlateScanJob struct {
	config       *config.Config
	provider     contracts.OddsProvider
	orchestrator *brain.Orchestrator
	feedManager  *feed.FeedManager // nil when the line watcher is disabled
	logger       *logger.Logger
}

// NewSlateScanJob creates a new slate scan job
func NewSlateScanJob(cfg *config.Config, provider contracts.OddsProvider, orch *brain.Orchestrator, fm *feed.FeedManager, log *logger.Logger) *SlateScanJob {
	return &SlateScanJob{
		config:       cfg,
		provider:     provider,
		orchestrator: orch,
		feedManager:  fm,
		logger:       log,
	}
}

// Name returns the job name
func (j *SlateScanJob) Name() string {
	return "slate_scan"
}

// Schedule returns the cron schedule
func (j *SlateScanJob) Schedule() string {
	return j.config.Scheduler.SlateCron
}

// Run scans today's slate and drives one run per game and market.
// Idempotency keys are derived from the date, game and bet type, so a
// rerun of the job replays the morning's decisions instead of
// re-deciding on moved lines.
func (j *SlateScanJob) Run(ctx context.Context) error {
	today := time.Now()
	sportKey := j.config.Pipeline.SportKey

	j.logger.WithFields(map[string]interface{}{
		"sport": sportKey,
		"date":  today.Format("2006-01-02"),
	}).Info("Starting slate scan")

	games, err := j.provider.Slate(ctx, sportKey, today)
	if err != nil {
		return fmt.Errorf("failed to fetch slate: %w", err)
	}

	if len(games) == 0 {
		j.logger.Info("No games on today's slate, skipping")
		return nil
	}

	// Put the slate under line watch before deciding on it
	if j.feedManager != nil {
		j.feedManager.WatchSlate(games)
	}

	date := today.Format("20060102")
	requests := make([]contracts.RunParams, 0, len(games)*2)
	for i := range games {
		game := games[i]
		for _, bt := range []contracts.BetType{contracts.BetTotal, contracts.BetSpread} {
			requests = append(requests, contracts.RunParams{
				GameID:         game.GameID,
				BetType:        bt,
				Game:           &game,
				IdempotencyKey: fmt.Sprintf("slate_%s_%s_%s", date, game.GameID, bt),
				TriggeredBy:    contracts.TriggerScheduled,
			})
		}
	}

	outcomes := j.orchestrator.ExecuteAll(ctx, requests, j.config.Pipeline.Workers)

	picks := 0
	failures := 0
	for _, oc := range outcomes {
		if oc.Err != nil {
			failures++
			j.logger.WithError(oc.Err).WithFields(map[string]interface{}{
				"game_id":  oc.Params.GameID,
				"bet_type": oc.Params.BetType,
			}).Warn("Slate run failed")
			continue
		}
		if oc.Run != nil && oc.Run.Pick != nil && oc.Run.Pick.Units > 0 {
			picks++
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"games":    len(games),
		"runs":     len(requests),
		"picks":    picks,
		"failures": failures,
	}).Info("Slate scan completed")

	return nil
}
