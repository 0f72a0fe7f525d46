package jobs

import (
	"context"

	"github.com/wonny/delphi/v2/backend/internal/realtime/cache"
	"github.com/wonny/delphi/v2/backend/internal/realtime/feed"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// LineRefreshJob keeps the live line cache healthy: evicts games whose
// lines have gone stale and reports watcher stats. The feeds do their
// own refreshing; this job is the housekeeping pass.
type LineRefreshJob struct {
	config      *config.Config
	cache       *cache.LineCache
	feedManager *feed.FeedManager
	logger      *logger.Logger
}

// NewLineRefreshJob creates a new line refresh job
func NewLineRefreshJob(cfg *config.Config, lineCache *cache.LineCache, fm *feed.FeedManager, log *logger.Logger) *LineRefreshJob {
	return &LineRefreshJob{
		config:      cfg,
		cache:       lineCache,
		feedManager: fm,
		logger:      log,
	}
}

// Name returns the job name
func (j *LineRefreshJob) Name() string {
	return "line_refresh"
}

// Schedule returns the cron schedule
func (j *LineRefreshJob) Schedule() string {
	return j.config.Scheduler.LineCacheCron
}

// Run cleans the cache and logs the watcher state
func (j *LineRefreshJob) Run(ctx context.Context) error {
	removed := j.cache.CleanStale()

	stats, err := j.feedManager.GetStats(ctx)
	if err != nil {
		j.logger.WithError(err).Warn("Failed to read feed stats")
		return nil
	}

	j.logger.WithFields(map[string]interface{}{
		"evicted": removed,
		"stream":  stats.StreamGames,
		"tier1":   stats.Tier1Games,
		"tier2":   stats.Tier2Games,
		"tier3":   stats.Tier3Games,
		"fresh":   stats.CacheFresh,
		"stale":   stats.CacheStale,
	}).Info("Line cache refreshed")

	return nil
}
