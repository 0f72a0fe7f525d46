// Package queue publishes the freshest line cache contents to Redis so
// dashboards and other API instances read one shared view. Publishing
// is best effort; the in-process cache remains the source for the
// instance that owns the feeds.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wonny/delphi/v2/backend/internal/realtime"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
	"github.com/wonny/delphi/v2/backend/pkg/redis"
)

const (
	linesHashKey = "delphi:lines"
	linesChannel = "delphi:lines:updates"
)

// LineSync mirrors line cache entries into a Redis hash
// ⭐ SSOT: 라이브 라인 Redis 동기화는 이 구조체에서만
type LineSync struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewLineSync creates a new line sync publisher
func NewLineSync(client *redis.Client, ttl time.Duration, log *logger.Logger) *LineSync {
	return &LineSync{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

// PublishBatch writes a batch of game lines to the shared hash and
// announces the touched game ids on the update channel.
func (s *LineSync) PublishBatch(ctx context.Context, batch []*realtime.GameLines) error {
	if !s.client.Enabled() || len(batch) == 0 {
		return nil
	}

	rdb := s.client.Redis()
	pipe := rdb.Pipeline()

	gameIDs := make([]string, 0, len(batch))
	for _, gl := range batch {
		payload, err := json.Marshal(gl)
		if err != nil {
			return fmt.Errorf("failed to marshal lines for game %s: %w", gl.GameID, err)
		}
		pipe.HSet(ctx, linesHashKey, gl.GameID, payload)
		gameIDs = append(gameIDs, gl.GameID)
	}
	pipe.Expire(ctx, linesHashKey, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish line batch: %w", err)
	}

	announce, _ := json.Marshal(gameIDs)
	if err := rdb.Publish(ctx, linesChannel, announce).Err(); err != nil {
		// Subscribers just miss one wakeup; the hash is already current
		s.logger.WithError(err).Debug("Failed to announce line updates")
	}

	s.logger.WithField("count", len(batch)).Debug("Published lines to Redis")
	return nil
}

// Get reads one game's lines from the shared hash
func (s *LineSync) Get(ctx context.Context, gameID string) (*realtime.GameLines, error) {
	if !s.client.Enabled() {
		return nil, nil
	}

	payload, err := s.client.Redis().HGet(ctx, linesHashKey, gameID).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lines for game %s: %w", gameID, err)
	}

	var gl realtime.GameLines
	if err := json.Unmarshal(payload, &gl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lines for game %s: %w", gameID, err)
	}
	return &gl, nil
}

// Remove drops finished games from the shared hash
func (s *LineSync) Remove(ctx context.Context, gameIDs ...string) error {
	if !s.client.Enabled() || len(gameIDs) == 0 {
		return nil
	}

	if err := s.client.Redis().HDel(ctx, linesHashKey, gameIDs...).Err(); err != nil {
		return fmt.Errorf("failed to remove lines: %w", err)
	}
	return nil
}

// GetStats returns publish-side statistics
func (s *LineSync) GetStats(ctx context.Context) (SyncStats, error) {
	if !s.client.Enabled() {
		return SyncStats{}, nil
	}

	count, err := s.client.Redis().HLen(ctx, linesHashKey).Result()
	if err != nil {
		return SyncStats{}, fmt.Errorf("failed to read sync stats: %w", err)
	}
	return SyncStats{PublishedGames: int(count)}, nil
}

// SyncStats represents shared hash statistics
type SyncStats struct {
	PublishedGames int `json:"published_games"`
}
