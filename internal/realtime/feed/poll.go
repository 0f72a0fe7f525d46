package feed

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/internal/realtime"
	"github.com/wonny/delphi/v2/backend/internal/realtime/cache"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

const (
	// Odds API plans meter requests; stay inside 10 req/sec overall
	// with a 60/30/10 split across tiers.
	tier1RateLimit = 6
	tier2RateLimit = 3
	tier3RateLimit = 1
)

// TieredPoller polls game lines over REST for games that did not earn
// a stream slot
// ⭐ SSOT: 라인 REST 폴링 및 Rate Limit 관리는 이 폴러에서만
type TieredPoller struct {
	config   *config.Config
	logger   *logger.Logger
	provider contracts.OddsProvider
	cache    *cache.LineCache

	// Tier games: gameID -> sportKey
	tier1Games map[string]string
	tier2Games map[string]string
	tier3Games map[string]string
	tierMu     sync.RWMutex

	// Rate limiters per tier
	tier1Limiter *rate.Limiter
	tier2Limiter *rate.Limiter
	tier3Limiter *rate.Limiter

	// Intervals
	tier1Interval time.Duration
	tier2Interval time.Duration
	tier3Interval time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewTieredPoller creates a new tiered poller. Tier cadences derive
// from the configured base poll interval: 1x, 3x, 6x.
func NewTieredPoller(cfg *config.Config, log *logger.Logger, provider contracts.OddsProvider, lineCache *cache.LineCache) *TieredPoller {
	base := cfg.Realtime.PollEvery
	if base <= 0 {
		base = 30 * time.Second
	}

	return &TieredPoller{
		config:   cfg,
		logger:   log,
		provider: provider,
		cache:    lineCache,

		tier1Games: make(map[string]string),
		tier2Games: make(map[string]string),
		tier3Games: make(map[string]string),

		tier1Limiter: rate.NewLimiter(rate.Limit(tier1RateLimit), tier1RateLimit),
		tier2Limiter: rate.NewLimiter(rate.Limit(tier2RateLimit), tier2RateLimit),
		tier3Limiter: rate.NewLimiter(rate.Limit(tier3RateLimit), tier3RateLimit),

		tier1Interval: base,
		tier2Interval: 3 * base,
		tier3Interval: 6 * base,

		stopCh: make(chan struct{}),
	}
}

// Start starts all tier polling loops
func (p *TieredPoller) Start(ctx context.Context) error {
	p.logger.Info("Starting tiered line poller")

	p.wg.Add(3)
	go p.pollLoop(ctx, realtime.Tier1, p.tier1Interval)
	go p.pollLoop(ctx, realtime.Tier2, p.tier2Interval)
	go p.pollLoop(ctx, realtime.Tier3, p.tier3Interval)

	return nil
}

// Stop stops all tier polling loops
func (p *TieredPoller) Stop() {
	p.logger.Info("Stopping tiered line poller")
	close(p.stopCh)
	p.wg.Wait()
}

// UpdateTierGames updates the games polled at a specific tier
func (p *TieredPoller) UpdateTierGames(tier realtime.Tier, games []contracts.Game) {
	p.tierMu.Lock()
	defer p.tierMu.Unlock()

	gameMap := make(map[string]string, len(games))
	for _, g := range games {
		gameMap[g.GameID] = g.SportKey
	}

	switch tier {
	case realtime.Tier1:
		p.tier1Games = gameMap
	case realtime.Tier2:
		p.tier2Games = gameMap
	case realtime.Tier3:
		p.tier3Games = gameMap
	}

	p.logger.WithFields(map[string]interface{}{
		"tier":  tier,
		"count": len(games),
	}).Info("Updated tier games")
}

// pollLoop polls one tier at its cadence until stopped
func (p *TieredPoller) pollLoop(ctx context.Context, tier realtime.Tier, interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.WithFields(map[string]interface{}{
		"tier":     tier,
		"interval": interval,
	}).Info("Started tier polling loop")

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pollTier(ctx, tier)
		}
	}
}

// pollTier polls every game in one tier
func (p *TieredPoller) pollTier(ctx context.Context, tier realtime.Tier) {
	p.tierMu.RLock()
	var games map[string]string
	var limiter *rate.Limiter

	switch tier {
	case realtime.Tier1:
		games = p.tier1Games
		limiter = p.tier1Limiter
	case realtime.Tier2:
		games = p.tier2Games
		limiter = p.tier2Limiter
	case realtime.Tier3:
		games = p.tier3Games
		limiter = p.tier3Limiter
	default:
		p.tierMu.RUnlock()
		return
	}

	// Copy to release the lock quickly
	type target struct{ gameID, sportKey string }
	targets := make([]target, 0, len(games))
	for gameID, sportKey := range games {
		targets = append(targets, target{gameID, sportKey})
	}
	p.tierMu.RUnlock()

	if len(targets) == 0 {
		return
	}

	successCount := 0
	errorCount := 0

	for _, t := range targets {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		default:
		}

		if err := limiter.Wait(ctx); err != nil {
			p.logger.WithError(err).Error("Rate limiter wait failed")
			return
		}

		lines, err := p.provider.Lines(ctx, t.sportKey, t.gameID)
		if err != nil {
			p.logger.WithError(err).WithField("game_id", t.gameID).Debug("Failed to fetch lines")
			errorCount++
			continue
		}

		gl := &realtime.GameLines{
			GameID:    t.gameID,
			SportKey:  t.sportKey,
			Lines:     lines,
			Timestamp: time.Now(),
			Source:    string(realtime.SourcePoll),
		}

		if p.cache.Update(gl) {
			successCount++
		}
	}

	if successCount > 0 || errorCount > 0 {
		p.logger.WithFields(map[string]interface{}{
			"tier":    tier,
			"success": successCount,
			"error":   errorCount,
			"total":   len(targets),
		}).Debug("Completed tier polling")
	}
}

// GetTierStats returns statistics for each tier
func (p *TieredPoller) GetTierStats() TierStats {
	p.tierMu.RLock()
	defer p.tierMu.RUnlock()

	return TierStats{
		Tier1Count: len(p.tier1Games),
		Tier2Count: len(p.tier2Games),
		Tier3Count: len(p.tier3Games),
		Tier1Rate:  tier1RateLimit,
		Tier2Rate:  tier2RateLimit,
		Tier3Rate:  tier3RateLimit,
	}
}

// TierStats represents statistics for tiered polling
type TierStats struct {
	Tier1Count int `json:"tier1_count"`
	Tier2Count int `json:"tier2_count"`
	Tier3Count int `json:"tier3_count"`
	Tier1Rate  int `json:"tier1_rate"`
	Tier2Rate  int `json:"tier2_rate"`
	Tier3Rate  int `json:"tier3_rate"`
}
