package statsfeed

import (
	"time"

	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/httputil"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
	"github.com/wonny/delphi/v2/backend/pkg/redis"
)

// Client handles communication with the team stats API
// ⭐ SSOT: 팀 스탯 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	cache      *redis.Cache // optional, see WithCache
	cacheTTL   time.Duration
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// NewClient creates a new stats feed client
func NewClient(cfg config.StatsFeedConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		cacheTTL:   cfg.CacheTTL,
		logger:     log,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
	}
}

// WithCache enables cross-instance caching of form and baseline reads.
// Team form moves game by game, so the configured TTL keeps a whole
// slate's worth of pipeline runs from re-fetching the same teams.
func (c *Client) WithCache(cache *redis.Cache) *Client {
	c.cache = cache
	return c
}

// formResponse is the per-team form payload as the feed reports it
type formResponse struct {
	Team       string  `json:"team"`
	WinPct10   float64 `json:"win_pct_10"`
	Streak     int     `json:"streak"`
	NetRating  float64 `json:"net_rating"`
	OffRating  float64 `json:"off_rating"`
	DefRating  float64 `json:"def_rating"`
	Pace       float64 `json:"pace"`
	RestDays   int     `json:"rest_days"`
	BackToBack bool    `json:"back_to_back"`
}

// baselineResponse is the league-wide averages payload
type baselineResponse struct {
	SportKey string  `json:"sport_key"`
	AvgTotal float64 `json:"avg_total"`
	AvgPace  float64 `json:"avg_pace"`
}
