package oddsfeed

import (
	"time"

	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/httputil"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// Client handles communication with The Odds API (v4)
// ⭐ SSOT: 오즈 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
	region     string
}

// NewClient creates a new odds feed client
func NewClient(cfg config.OddsFeedConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		region:     cfg.Region,
	}
}

// oddsEvent is one event as the feed reports it
type oddsEvent struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []bookmaker `json:"bookmakers"`
}

type bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []market  `json:"markets"`
}

type market struct {
	Key      string    `json:"key"`
	Outcomes []outcome `json:"outcomes"`
}

type outcome struct {
	Name  string   `json:"name"`
	Price int      `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

// apiError is the feed's error envelope (non-200 responses)
type apiError struct {
	Message string `json:"message"`
}
