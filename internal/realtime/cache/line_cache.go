package cache

import (
	"sync"
	"time"

	"github.com/wonny/delphi/v2/backend/internal/realtime"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// LineCache is an in-memory cache for live market lines
// ⭐ SSOT: 라이브 라인 캐싱은 이 구조체에서만
type LineCache struct {
	mu     sync.RWMutex
	lines  map[string]*realtime.GameLines
	ttl    time.Duration
	logger *logger.Logger
}

// NewLineCache creates a new line cache
func NewLineCache(ttl time.Duration, log *logger.Logger) *LineCache {
	return &LineCache{
		lines:  make(map[string]*realtime.GameLines),
		ttl:    ttl,
		logger: log,
	}
}

// Update updates a game's lines in cache.
// Only accepts newer data, or same-timestamp data from a higher
// priority source (a stream tick beats a concurrent poll).
func (c *LineCache) Update(gl *realtime.GameLines) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, exists := c.lines[gl.GameID]

	if exists {
		if gl.Timestamp.Before(existing.Timestamp) {
			c.logger.WithFields(map[string]interface{}{
				"game_id":    gl.GameID,
				"new_time":   gl.Timestamp,
				"old_time":   existing.Timestamp,
				"new_source": gl.Source,
				"old_source": existing.Source,
			}).Debug("Rejected older line data")
			return false
		}

		if gl.Timestamp.Equal(existing.Timestamp) {
			newSource := realtime.LineSource(gl.Source)
			oldSource := realtime.LineSource(existing.Source)
			if newSource.Priority() <= oldSource.Priority() {
				return false
			}
		}
	}

	gl.IsStale = time.Since(gl.Timestamp) > c.ttl

	c.lines[gl.GameID] = gl

	c.logger.WithFields(map[string]interface{}{
		"game_id": gl.GameID,
		"books":   len(gl.Lines),
		"source":  gl.Source,
		"stale":   gl.IsStale,
	}).Debug("Updated line cache")

	return true
}

// Get retrieves a game's lines from cache
func (c *LineCache) Get(gameID string) (*realtime.GameLines, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	gl, exists := c.lines[gameID]
	if !exists {
		return nil, false
	}

	if time.Since(gl.Timestamp) > c.ttl {
		gl.IsStale = true
	}

	return gl, true
}

// GetAll retrieves every cached game's lines
func (c *LineCache) GetAll() map[string]*realtime.GameLines {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*realtime.GameLines, len(c.lines))
	for gameID, gl := range c.lines {
		if time.Since(gl.Timestamp) > c.ttl {
			gl.IsStale = true
		}
		result[gameID] = gl
	}

	return result
}

// Delete removes a game's lines from cache
func (c *LineCache) Delete(gameID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.lines, gameID)
}

// Clear clears the cache
func (c *LineCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = make(map[string]*realtime.GameLines)
	c.logger.Info("Cleared line cache")
}

// Len returns the number of games in cache
func (c *LineCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.lines)
}

// CleanStale removes games whose lines have aged past the TTL.
// Called after the slate's last tip so finished games fall out.
func (c *LineCache) CleanStale() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	count := 0

	for gameID, gl := range c.lines {
		if now.Sub(gl.Timestamp) > c.ttl {
			delete(c.lines, gameID)
			count++
		}
	}

	if count > 0 {
		c.logger.WithField("count", count).Info("Cleaned stale lines from cache")
	}

	return count
}

// Stats returns cache statistics
func (c *LineCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		TotalCount: len(c.lines),
	}

	now := time.Now()
	for _, gl := range c.lines {
		if now.Sub(gl.Timestamp) > c.ttl {
			stats.StaleCount++
		}

		switch realtime.LineSource(gl.Source) {
		case realtime.SourceStream:
			stats.StreamCount++
		case realtime.SourcePoll:
			stats.PollCount++
		}
	}

	stats.FreshCount = stats.TotalCount - stats.StaleCount

	return stats
}

// CacheStats represents cache statistics
type CacheStats struct {
	TotalCount  int `json:"total_count"`
	FreshCount  int `json:"fresh_count"`
	StaleCount  int `json:"stale_count"`
	StreamCount int `json:"stream_count"`
	PollCount   int `json:"poll_count"`
}
