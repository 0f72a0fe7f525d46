package feed

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/internal/realtime"
	"github.com/wonny/delphi/v2/backend/internal/realtime/cache"
	"github.com/wonny/delphi/v2/backend/internal/realtime/queue"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
	"github.com/wonny/delphi/v2/backend/pkg/metrics"
)

// FeedManager orchestrates the live line feeds
// ⭐ SSOT: 라이브 라인 피드 조율은 이 매니저에서만
type FeedManager struct {
	config *config.Config
	logger *logger.Logger

	// Feed sources
	stream *StreamClient
	poller *TieredPoller

	// Infrastructure
	cache    *cache.LineCache
	lineSync *queue.LineSync
	metrics  *metrics.PipelineMetrics

	// Game priority management
	priorities map[string]*realtime.GamePriority
	games      map[string]contracts.Game
	priorityMu sync.RWMutex

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewFeedManager creates a new feed manager
func NewFeedManager(cfg *config.Config, log *logger.Logger, provider contracts.OddsProvider, lineCache *cache.LineCache, lineSync *queue.LineSync, pm *metrics.PipelineMetrics) *FeedManager {
	return &FeedManager{
		config:     cfg,
		logger:     log,
		stream:     NewStreamClient(cfg, log, lineCache),
		poller:     NewTieredPoller(cfg, log, provider, lineCache),
		cache:      lineCache,
		lineSync:   lineSync,
		metrics:    pm,
		priorities: make(map[string]*realtime.GamePriority),
		games:      make(map[string]contracts.Game),
		stopCh:     make(chan struct{}),
	}
}

// Start starts all feed sources
func (m *FeedManager) Start(ctx context.Context) error {
	m.logger.Info("Starting feed manager")

	if err := m.stream.Start(ctx); err != nil {
		return err
	}

	if err := m.poller.Start(ctx); err != nil {
		return err
	}

	// Priority rebalancing loop
	m.wg.Add(1)
	go m.rebalanceLoop(ctx)

	// Cache to Redis sync loop
	m.wg.Add(1)
	go m.syncLoop(ctx)

	m.logger.Info("Feed manager started successfully")
	return nil
}

// Stop stops all feed sources
func (m *FeedManager) Stop() {
	m.logger.Info("Stopping feed manager")

	close(m.stopCh)

	m.stream.Stop()
	m.poller.Stop()

	m.wg.Wait()

	m.logger.Info("Feed manager stopped")
}

// WatchSlate registers a slate of games for line watching. Priorities
// are scored from tip time; games already being watched keep their
// open-run flag.
func (m *FeedManager) WatchSlate(games []contracts.Game) {
	m.priorityMu.Lock()
	for _, game := range games {
		m.games[game.GameID] = game

		priority, exists := m.priorities[game.GameID]
		if !exists {
			priority = &realtime.GamePriority{GameID: game.GameID}
			m.priorities[game.GameID] = priority
		}
		priority.StartsAt = game.StartsAt
		priority.CalculateScore()

		m.stream.UpdatePriority(priority)
	}
	count := len(m.priorities)
	m.priorityMu.Unlock()

	if m.metrics != nil {
		m.metrics.UpdateLinesWatched(count)
	}

	m.logger.WithField("games", len(games)).Info("Watching slate lines")
}

// MarkOpenRun bumps a game's priority while a run is in flight on it
func (m *FeedManager) MarkOpenRun(gameID string) {
	m.priorityMu.Lock()
	priority, exists := m.priorities[gameID]
	if !exists {
		priority = &realtime.GamePriority{GameID: gameID}
		m.priorities[gameID] = priority
	}
	priority.HasOpenRun = true
	priority.CalculateScore()
	m.priorityMu.Unlock()

	m.stream.UpdatePriority(priority)

	m.logger.WithFields(map[string]interface{}{
		"game_id": gameID,
		"score":   priority.Score,
	}).Debug("Raised game priority for open run")
}

// RemoveGame removes a game from tracking, typically after tip
func (m *FeedManager) RemoveGame(gameID string) {
	m.priorityMu.Lock()
	delete(m.priorities, gameID)
	delete(m.games, gameID)
	count := len(m.priorities)
	m.priorityMu.Unlock()

	m.stream.RemoveGame(gameID)
	m.cache.Delete(gameID)

	if m.metrics != nil {
		m.metrics.UpdateLinesWatched(count)
	}

	m.logger.WithField("game_id", gameID).Debug("Removed game from tracking")
}

// rebalanceLoop periodically rebalances game tiers
func (m *FeedManager) rebalanceLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.rebalanceTiers()
		}
	}
}

// rebalanceTiers assigns poll tiers from refreshed priority scores.
// Games holding a stream slot are excluded from REST polling.
func (m *FeedManager) rebalanceTiers() {
	m.priorityMu.RLock()
	priorities := make([]*realtime.GamePriority, 0, len(m.priorities))
	for _, priority := range m.priorities {
		priority.CalculateScore()
		priorities = append(priorities, priority)
	}
	games := make(map[string]contracts.Game, len(m.games))
	for gameID, game := range m.games {
		games[gameID] = game
	}
	m.priorityMu.RUnlock()

	if len(priorities) == 0 {
		return
	}

	tier1Games := make([]contracts.Game, 0)
	tier2Games := make([]contracts.Game, 0)
	tier3Games := make([]contracts.Game, 0)

	streamGames := m.stream.GetActiveGames()
	streamGamesMap := make(map[string]bool)
	for _, gameID := range streamGames {
		streamGamesMap[gameID] = true
	}

	for _, priority := range priorities {
		if streamGamesMap[priority.GameID] {
			continue
		}

		game, ok := games[priority.GameID]
		if !ok {
			continue
		}

		tier := realtime.GetTierFromScore(priority.Score)
		switch tier {
		case realtime.Tier1:
			tier1Games = append(tier1Games, game)
		case realtime.Tier2:
			tier2Games = append(tier2Games, game)
		case realtime.Tier3:
			tier3Games = append(tier3Games, game)
		}
	}

	m.poller.UpdateTierGames(realtime.Tier1, tier1Games)
	m.poller.UpdateTierGames(realtime.Tier2, tier2Games)
	m.poller.UpdateTierGames(realtime.Tier3, tier3Games)

	m.logger.WithFields(map[string]interface{}{
		"stream": len(streamGames),
		"tier1":  len(tier1Games),
		"tier2":  len(tier2Games),
		"tier3":  len(tier3Games),
	}).Info("Rebalanced game tiers")
}

// syncLoop periodically mirrors the cache into Redis
func (m *FeedManager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.syncCacheToRedis(ctx)
		}
	}
}

// syncCacheToRedis publishes the fresh cache entries
func (m *FeedManager) syncCacheToRedis(ctx context.Context) {
	all := m.cache.GetAll()

	if len(all) == 0 {
		return
	}

	batch := make([]*realtime.GameLines, 0, len(all))
	for _, gl := range all {
		// Only publish non-stale lines
		if !gl.IsStale {
			batch = append(batch, gl)
		}
	}

	if len(batch) == 0 {
		return
	}

	if err := m.lineSync.PublishBatch(ctx, batch); err != nil {
		m.logger.WithError(err).Error("Failed to publish line batch")
		return
	}

	m.logger.WithField("count", len(batch)).Debug("Synced cache to Redis")
}

// GetStats returns statistics for all components
func (m *FeedManager) GetStats(ctx context.Context) (*FeedStats, error) {
	cacheStats := m.cache.Stats()
	tierStats := m.poller.GetTierStats()
	syncStats, err := m.lineSync.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	streamGames := m.stream.GetActiveGames()

	return &FeedStats{
		StreamGames:    len(streamGames),
		Tier1Games:     tierStats.Tier1Count,
		Tier2Games:     tierStats.Tier2Count,
		Tier3Games:     tierStats.Tier3Count,
		CacheTotal:     cacheStats.TotalCount,
		CacheFresh:     cacheStats.FreshCount,
		CacheStale:     cacheStats.StaleCount,
		PublishedGames: syncStats.PublishedGames,
	}, nil
}

// FeedStats represents statistics for the feed manager
type FeedStats struct {
	StreamGames    int `json:"stream_games"`
	Tier1Games     int `json:"tier1_games"`
	Tier2Games     int `json:"tier2_games"`
	Tier3Games     int `json:"tier3_games"`
	CacheTotal     int `json:"cache_total"`
	CacheFresh     int `json:"cache_fresh"`
	CacheStale     int `json:"cache_stale"`
	PublishedGames int `json:"published_games"`
}
