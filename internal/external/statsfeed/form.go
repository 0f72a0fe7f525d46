package statsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// TeamForm fetches one team's recent form snapshot
// ⭐ SSOT: 팀 폼 조회는 이 함수에서만
func (c *Client) TeamForm(ctx context.Context, sportKey, team string) (*contracts.TeamForm, error) {
	cacheKey := fmt.Sprintf("form:%s:%s", sportKey, team)
	if c.cache != nil {
		var cached contracts.TeamForm
		if found, _ := c.cache.Get(ctx, cacheKey, &cached); found {
			return &cached, nil
		}
	}

	fullURL := fmt.Sprintf("%s/teams/%s/%s/form?apiKey=%s",
		c.baseURL, sportKey, url.PathEscape(team), c.apiKey)

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no form data for team %s", team)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result formResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	form := &contracts.TeamForm{
		Team:       result.Team,
		WinPct10:   result.WinPct10,
		Streak:     result.Streak,
		NetRating:  result.NetRating,
		OffRating:  result.OffRating,
		DefRating:  result.DefRating,
		Pace:       result.Pace,
		RestDays:   result.RestDays,
		BackToBack: result.BackToBack,
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, form, c.cacheTTL); err != nil {
			c.logger.WithError(err).Debug("Failed to cache team form")
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"team":       team,
		"win_pct_10": form.WinPct10,
		"rest_days":  form.RestDays,
	}).Debug("Fetched team form")

	return form, nil
}

// LeagueBaseline fetches the league average total and pace
func (c *Client) LeagueBaseline(ctx context.Context, sportKey string) (float64, float64, error) {
	cacheKey := fmt.Sprintf("baseline:%s", sportKey)
	if c.cache != nil {
		var cached baselineResponse
		if found, _ := c.cache.Get(ctx, cacheKey, &cached); found {
			return cached.AvgTotal, cached.AvgPace, nil
		}
	}

	fullURL := fmt.Sprintf("%s/leagues/%s/baselines?apiKey=%s", c.baseURL, sportKey, c.apiKey)

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return 0, 0, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result baselineResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, 0, fmt.Errorf("decode response: %w", err)
	}

	if result.AvgTotal <= 0 {
		return 0, 0, fmt.Errorf("feed returned non-positive league average total: %v", result.AvgTotal)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, result, c.cacheTTL); err != nil {
			c.logger.WithError(err).Debug("Failed to cache league baseline")
		}
	}

	return result.AvgTotal, result.AvgPace, nil
}
