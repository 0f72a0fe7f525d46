package commands

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/wonny/delphi/v2/backend/internal/bankroll"
	"github.com/wonny/delphi/v2/backend/internal/brain"
	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/internal/external/injuryweb"
	"github.com/wonny/delphi/v2/backend/internal/external/oddsfeed"
	"github.com/wonny/delphi/v2/backend/internal/external/statsfeed"
	"github.com/wonny/delphi/v2/backend/internal/factors"
	"github.com/wonny/delphi/v2/backend/internal/idempotency"
	"github.com/wonny/delphi/v2/backend/internal/notify"
	"github.com/wonny/delphi/v2/backend/internal/odds"
	"github.com/wonny/delphi/v2/backend/internal/picks"
	"github.com/wonny/delphi/v2/backend/internal/profile"
	"github.com/wonny/delphi/v2/backend/internal/realtime/cache"
	"github.com/wonny/delphi/v2/backend/internal/realtime/feed"
	"github.com/wonny/delphi/v2/backend/internal/realtime/queue"
	"github.com/wonny/delphi/v2/backend/internal/research"
	"github.com/wonny/delphi/v2/backend/internal/runs"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/database"
	"github.com/wonny/delphi/v2/backend/pkg/httputil"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
	"github.com/wonny/delphi/v2/backend/pkg/metrics"
	"github.com/wonny/delphi/v2/backend/pkg/redis"
)

// app bundles the wired dependencies every command needs.
// ⭐ SSOT: CLI 의존성 조립은 newApp()에서만
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	rdb      *redis.Client
	metrics  *metrics.PipelineMetrics
	registry *profile.Registry

	store        *runs.Store
	pickRepo     *picks.Repository
	oddsClient   *oddsfeed.Client
	orchestrator *brain.Orchestrator
	planner      *bankroll.Planner
}

// newApp wires the full dependency graph: config, logger, stores,
// providers, and the orchestrator. Callers own Close().
func newApp() (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Connect to Redis (no-op client when disabled)
	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 5. Create HTTP clients, one per provider so each carries its
	// own Redis-backed quota limit
	limiter := redis.NewRateLimiter(rdb, "delphi")
	oddsHTTP := httputil.New(cfg, log).WithRateLimiter(limiter, redis.OddsRateLimit)
	statsHTTP := httputil.New(cfg, log).WithRateLimiter(limiter, redis.StatsRateLimit)
	injuryHTTP := httputil.New(cfg, log).WithRateLimiter(limiter, redis.InjuryRateLimit)

	// 6. Create external providers (slow-moving reads go through the
	// shared Redis cache; the quota limiters above stay per-provider)
	providerCache := redis.NewCache(rdb, "delphi")
	oddsClient := oddsfeed.NewClient(cfg.OddsFeed, oddsHTTP, log)
	statsClient := statsfeed.NewClient(cfg.StatsFeed, statsHTTP, log).WithCache(providerCache)
	injuryClient := injuryweb.NewClient(cfg.InjuryWeb, injuryHTTP, log).WithCache(providerCache)
	ensemble := research.NewEnsemble(cfg.Research, log).WithCache(providerCache)

	// 7. Load capper profiles
	registry, err := loadRegistry(cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	// 8. Create repositories
	store := runs.NewStore(db.Pool)
	pickRepo := picks.NewRepository(db.Pool)

	// 9. Create idempotency guard
	guard := idempotency.NewGuard(store, log)

	// 10. Create notifiers
	var notifier contracts.Notifier = notify.NewConsoleNotifier(log)
	if cfg.Telegram.Enabled {
		tg, tgErr := notify.NewTelegramNotifier(cfg.Telegram, log)
		if tgErr != nil {
			db.Close()
			return nil, fmt.Errorf("init telegram notifier: %w", tgErr)
		}
		notifier = notify.Multi{notifier, tg}
	}

	// 11. Create metrics registry
	var pm *metrics.PipelineMetrics
	if cfg.MetricsEnabled {
		pm = metrics.NewPipelineMetrics()
	}

	// 12. Create factor builder
	factorBuilder := factors.NewBuilder(
		factors.NewFormCalculator(log),
		factors.NewMatchupCalculator(log),
		factors.NewPaceCalculator(log),
		factors.NewInjuryCalculator(log),
		factors.NewRestCalculator(log),
		log,
	)

	// 13. Create odds snapshot builder
	snapshots := odds.NewSnapshotBuilder(oddsClient, cfg.OddsFeed.MaxStale, log)

	// 14. Create orchestrator
	orchestrator := brain.NewOrchestrator(
		snapshots,
		statsClient,
		injuryClient,
		factorBuilder,
		ensemble,
		notifier,
		store,
		guard,
		registry,
		pm,
		cfg.Pipeline.StageTimeout,
		resolveGitCommit(cfg),
		log,
	)

	// 15. Create stake planner from the active profile
	planner, err := bankroll.NewPlanner(registry.Active().Staking)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init stake planner: %w", err)
	}

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		rdb:          rdb,
		metrics:      pm,
		registry:     registry,
		store:        store,
		pickRepo:     pickRepo,
		oddsClient:   oddsClient,
		orchestrator: orchestrator,
		planner:      planner,
	}, nil
}

// Close releases database and Redis connections.
func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// newLineWatcher builds the live line cache and, when the realtime
// watcher is enabled, the feed manager that fills it.
func (a *app) newLineWatcher() (*cache.LineCache, *queue.LineSync, *feed.FeedManager) {
	// Line caches use the feed TTL, not MaxStale: MaxStale gates how old
	// a snapshot the pipeline will still commit on, while the cache TTL
	// only bounds how long a polled line is served without a re-fetch.
	lineCache := cache.NewLineCache(a.cfg.OddsFeed.CacheTTL, a.log)
	lineSync := queue.NewLineSync(a.rdb, a.cfg.OddsFeed.CacheTTL, a.log)

	var fm *feed.FeedManager
	if a.cfg.Realtime.Enabled {
		fm = feed.NewFeedManager(a.cfg, a.log, a.oddsClient, lineCache, lineSync, a.metrics)
	}

	return lineCache, lineSync, fm
}

// loadRegistry loads profiles from disk, falling back to the built-in
// NBA profiles when no profile directory is deployed.
func loadRegistry(cfg *config.Config, log *logger.Logger) (*profile.Registry, error) {
	registry, err := profile.LoadDir(cfg.Pipeline.ProfileDir, cfg.Pipeline.ActiveProfile)
	if err == nil {
		return registry, nil
	}

	log.WithError(err).WithField("dir", cfg.Pipeline.ProfileDir).
		Warn("Profile dir unavailable, using built-in profiles")

	registry, err = profile.NewRegistry(cfg.Pipeline.ActiveProfile, profile.DefaultV1(), profile.DefaultV2())
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	return registry, nil
}

// resolveGitCommit prefers the injected build commit, then the local
// git checkout. Decision stamps need some commit identity either way.
func resolveGitCommit(cfg *config.Config) string {
	if cfg.Pipeline.GitCommit != "" && cfg.Pipeline.GitCommit != "dev" {
		return cfg.Pipeline.GitCommit
	}
	return getGitSHA()
}

func getGitSHA() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}
