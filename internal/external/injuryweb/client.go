package injuryweb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/httputil"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
	"github.com/wonny/delphi/v2/backend/pkg/redis"
)

// Client scrapes the public injury report page
// ⭐ SSOT: 부상 리포트 스크랩은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	cache      *redis.Cache // optional, see WithCache
	cacheTTL   time.Duration
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new injury page client
func NewClient(cfg config.InjuryWebConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		cacheTTL:   cfg.CacheTTL,
		logger:     log,
		baseURL:    cfg.BaseURL,
	}
}

// WithCache enables caching of the fetched page. The page covers every
// team, so one cached fetch serves a whole slate of runs.
func (c *Client) WithCache(cache *redis.Cache) *Client {
	c.cache = cache
	return c
}

// fetchHTML fetches the injury report page
func (c *Client) fetchHTML(ctx context.Context, path string) (string, error) {
	fullURL := c.baseURL
	if path != "" {
		fullURL = fmt.Sprintf("%s%s", c.baseURL, path)
	}

	cacheKey := "injury:page:" + fullURL
	if c.cache != nil {
		var cached string
		if found, _ := c.cache.Get(ctx, cacheKey, &cached); found {
			return cached, nil
		}
	}

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, string(body), c.cacheTTL); err != nil {
			c.logger.WithError(err).Debug("Failed to cache injury page")
		}
	}

	return string(body), nil
}
