package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/internal/realtime"
	"github.com/wonny/delphi/v2/backend/internal/realtime/cache"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

const (
	// MaxStreamGames is the maximum number of games subscribed on the stream.
	// Feed vendors meter concurrent subscriptions, so the slots go to the
	// highest priority games and everything else falls back to polling.
	MaxStreamGames = 25

	// Reconnect settings
	reconnectDelay    = 5 * time.Second
	maxReconnectDelay = 5 * time.Minute

	// Ping/Pong settings
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

// StreamClient manages live line data over the odds feed WebSocket
// ⭐ SSOT: 스트림 연결 및 게임 구독 관리는 이 클라이언트에서만
type StreamClient struct {
	config        *config.Config
	logger        *logger.Logger
	cache         *cache.LineCache
	priorityQueue *PriorityQueue

	conn   *websocket.Conn
	connMu sync.RWMutex

	activeGames map[string]bool
	gamesMu     sync.RWMutex

	stopCh       chan struct{}
	doneCh       chan struct{}
	reconnecting bool
	reconnectMu  sync.Mutex
}

// NewStreamClient creates a new stream client
func NewStreamClient(cfg *config.Config, log *logger.Logger, lineCache *cache.LineCache) *StreamClient {
	return &StreamClient{
		config:        cfg,
		logger:        log,
		cache:         lineCache,
		priorityQueue: NewPriorityQueue(),
		activeGames:   make(map[string]bool),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start starts the stream client
func (c *StreamClient) Start(ctx context.Context) error {
	c.logger.Info("Starting line stream client")

	if err := c.connect(ctx); err != nil {
		return fmt.Errorf("initial connection failed: %w", err)
	}

	go c.readLoop(ctx)
	go c.pingLoop(ctx)
	go c.priorityUpdateLoop(ctx)

	return nil
}

// Stop stops the stream client
func (c *StreamClient) Stop() {
	c.logger.Info("Stopping line stream client")

	close(c.stopCh)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.connMu.Unlock()

	<-c.doneCh
}

// UpdatePriority updates the refresh priority of a game
func (c *StreamClient) UpdatePriority(priority *realtime.GamePriority) {
	c.priorityQueue.Update(priority)
	c.rebalanceGames()
}

// RemoveGame removes a game from tracking
func (c *StreamClient) RemoveGame(gameID string) {
	c.priorityQueue.Remove(gameID)
	c.rebalanceGames()
}

// connect establishes the WebSocket connection
func (c *StreamClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	wsURL := c.config.Realtime.StreamURL

	c.logger.WithField("url", wsURL).Debug("Connecting to line stream")

	dialer := websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.conn = conn

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.logger.Info("Connected to line stream")

	// Subscribe to the current top priority games
	c.subscribeTopGames()

	return nil
}

// readLoop reads messages from the stream
func (c *StreamClient) readLoop(ctx context.Context) {
	defer close(c.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}

		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()

		if conn == nil {
			time.Sleep(1 * time.Second)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.logger.WithError(err).Error("Failed to read message")
			c.handleDisconnect(ctx)
			continue
		}

		if err := c.handleMessage(message); err != nil {
			c.logger.WithError(err).Error("Failed to handle message")
		}
	}
}

// handleMessage processes one stream message
func (c *StreamClient) handleMessage(message []byte) error {
	var msg StreamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}

	gl := c.convertToGameLines(&msg)

	if c.cache.Update(gl) {
		c.logger.WithFields(map[string]interface{}{
			"game_id": gl.GameID,
			"books":   len(gl.Lines),
		}).Debug("Updated lines from stream")
	}

	return nil
}

// handleDisconnect handles stream disconnection and reconnects
func (c *StreamClient) handleDisconnect(ctx context.Context) {
	c.reconnectMu.Lock()
	if c.reconnecting {
		c.reconnectMu.Unlock()
		return
	}
	c.reconnecting = true
	c.reconnectMu.Unlock()

	defer func() {
		c.reconnectMu.Lock()
		c.reconnecting = false
		c.reconnectMu.Unlock()
	}()

	c.logger.Warn("Line stream disconnected, attempting to reconnect")

	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-time.After(delay):
		}

		if err := c.connect(ctx); err != nil {
			c.logger.WithError(err).WithField("delay", delay).Error("Reconnect failed, retrying")

			// Exponential backoff
			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}
			continue
		}

		c.logger.Info("Reconnected to line stream")
		return
	}
}

// pingLoop sends periodic pings to keep connection alive
func (c *StreamClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()

			if conn == nil {
				continue
			}

			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				c.logger.WithError(err).Error("Failed to send ping")
			}
		}
	}
}

// priorityUpdateLoop periodically rebalances subscriptions. Priority
// scores decay as tips pass, so the top slots drift over the evening.
func (c *StreamClient) priorityUpdateLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.rebalanceGames()
		}
	}
}

// rebalanceGames rebalances the stream subscriptions based on priority
func (c *StreamClient) rebalanceGames() {
	top := c.priorityQueue.GetTop(MaxStreamGames)

	newGames := make(map[string]bool)
	for _, priority := range top {
		newGames[priority.GameID] = true
	}

	c.gamesMu.Lock()

	var toRemove []string
	for gameID := range c.activeGames {
		if !newGames[gameID] {
			toRemove = append(toRemove, gameID)
		}
	}

	var toAdd []string
	for gameID := range newGames {
		if !c.activeGames[gameID] {
			toAdd = append(toAdd, gameID)
		}
	}

	c.gamesMu.Unlock()

	if len(toRemove) > 0 {
		c.unsubscribeGames(toRemove)
	}

	if len(toAdd) > 0 {
		c.subscribeGames(toAdd)
	}

	if len(toAdd) > 0 || len(toRemove) > 0 {
		c.logger.WithFields(map[string]interface{}{
			"added":   len(toAdd),
			"removed": len(toRemove),
			"total":   len(newGames),
		}).Info("Rebalanced stream subscriptions")
	}
}

// subscribeTopGames subscribes to the highest priority games
func (c *StreamClient) subscribeTopGames() {
	top := c.priorityQueue.GetTop(MaxStreamGames)
	gameIDs := make([]string, len(top))
	for i, priority := range top {
		gameIDs[i] = priority.GameID
	}
	c.subscribeGames(gameIDs)
}

// subscribeGames subscribes to games
func (c *StreamClient) subscribeGames(gameIDs []string) {
	if len(gameIDs) == 0 {
		return
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil {
		return
	}

	for _, gameID := range gameIDs {
		msg := buildSubscribeMessage(gameID)

		if err := conn.WriteJSON(msg); err != nil {
			c.logger.WithError(err).WithField("game_id", gameID).Error("Failed to subscribe")
			continue
		}

		c.gamesMu.Lock()
		c.activeGames[gameID] = true
		c.gamesMu.Unlock()

		c.logger.WithField("game_id", gameID).Debug("Subscribed to game")
	}
}

// unsubscribeGames unsubscribes from games
func (c *StreamClient) unsubscribeGames(gameIDs []string) {
	if len(gameIDs) == 0 {
		return
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil {
		return
	}

	for _, gameID := range gameIDs {
		msg := buildUnsubscribeMessage(gameID)

		if err := conn.WriteJSON(msg); err != nil {
			c.logger.WithError(err).WithField("game_id", gameID).Error("Failed to unsubscribe")
			continue
		}

		c.gamesMu.Lock()
		delete(c.activeGames, gameID)
		c.gamesMu.Unlock()

		c.logger.WithField("game_id", gameID).Debug("Unsubscribed from game")
	}
}

// buildSubscribeMessage builds a subscribe frame for the odds stream
func buildSubscribeMessage(gameID string) map[string]interface{} {
	return map[string]interface{}{
		"action":  "subscribe",
		"channel": "odds",
		"game_id": gameID,
		"markets": []string{contracts.MarketSpread, contracts.MarketTotal},
	}
}

// buildUnsubscribeMessage builds an unsubscribe frame for the odds stream
func buildUnsubscribeMessage(gameID string) map[string]interface{} {
	return map[string]interface{}{
		"action":  "unsubscribe",
		"channel": "odds",
		"game_id": gameID,
	}
}

// convertToGameLines converts a stream message to GameLines
func (c *StreamClient) convertToGameLines(msg *StreamMessage) *realtime.GameLines {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return &realtime.GameLines{
		GameID:    msg.GameID,
		SportKey:  msg.SportKey,
		Lines:     msg.Lines,
		Timestamp: ts,
		Source:    string(realtime.SourceStream),
		IsStale:   false,
	}
}

// GetActiveGames returns the currently subscribed games
func (c *StreamClient) GetActiveGames() []string {
	c.gamesMu.RLock()
	defer c.gamesMu.RUnlock()

	gameIDs := make([]string, 0, len(c.activeGames))
	for gameID := range c.activeGames {
		gameIDs = append(gameIDs, gameID)
	}
	return gameIDs
}

// StreamMessage represents one odds update frame from the stream
type StreamMessage struct {
	GameID    string               `json:"game_id"`
	SportKey  string               `json:"sport_key"`
	Lines     []contracts.BookLine `json:"lines"`
	Timestamp time.Time            `json:"timestamp"`
}
