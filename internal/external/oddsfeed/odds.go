package oddsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// Slate fetches the games commencing on the given UTC date
// ⭐ SSOT: 슬레이트 조회는 이 함수에서만
func (c *Client) Slate(ctx context.Context, sportKey string, date time.Time) ([]contracts.Game, error) {
	day := date.UTC().Truncate(24 * time.Hour)

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", c.region)
	params.Set("markets", contracts.MarketMoneyline)
	params.Set("oddsFormat", "american")
	params.Set("commenceTimeFrom", day.Format("2006-01-02T15:04:05Z"))
	params.Set("commenceTimeTo", day.Add(24*time.Hour-time.Second).Format("2006-01-02T15:04:05Z"))

	fullURL := fmt.Sprintf("%s/sports/%s/odds?%s", c.baseURL, sportKey, params.Encode())

	events, err := c.fetchEvents(ctx, fullURL)
	if err != nil {
		return nil, err
	}

	games := make([]contracts.Game, 0, len(events))
	for _, ev := range events {
		games = append(games, contracts.Game{
			GameID:   ev.ID,
			SportKey: ev.SportKey,
			HomeTeam: ev.HomeTeam,
			AwayTeam: ev.AwayTeam,
			StartsAt: ev.CommenceTime,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"sport_key": sportKey,
		"date":      day.Format("2006-01-02"),
		"games":     len(games),
	}).Debug("Fetched slate")

	return games, nil
}

// Lines fetches every book's quotes for one game across all three markets
// ⭐ SSOT: 북 라인 조회는 이 함수에서만
func (c *Client) Lines(ctx context.Context, sportKey, gameID string) ([]contracts.BookLine, error) {
	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", c.region)
	params.Set("markets", fmt.Sprintf("%s,%s,%s",
		contracts.MarketMoneyline, contracts.MarketSpread, contracts.MarketTotal))
	params.Set("oddsFormat", "american")

	fullURL := fmt.Sprintf("%s/sports/%s/events/%s/odds?%s", c.baseURL, sportKey, gameID, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	var ev oddsEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	lines := flattenBookmakers(ev)

	c.logger.WithFields(map[string]interface{}{
		"game_id": gameID,
		"lines":   len(lines),
	}).Debug("Fetched book lines")

	return lines, nil
}

// fetchEvents fetches and decodes an event list endpoint
func (c *Client) fetchEvents(ctx context.Context, fullURL string) ([]oddsEvent, error) {
	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	var events []oddsEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return events, nil
}

// flattenBookmakers maps one event's nested bookmaker/market/outcome tree
// into flat per-book, per-market lines.
//
// Slot convention: for moneyline and spreads the home outcome fills
// PriceHome; for totals Over fills the home slot and Under the away slot.
// Spread Point is the home team's line (negative = home favored).
func flattenBookmakers(ev oddsEvent) []contracts.BookLine {
	var lines []contracts.BookLine

	for _, bm := range ev.Bookmakers {
		for _, mkt := range bm.Markets {
			line := contracts.BookLine{
				Book:       bm.Key,
				Market:     mkt.Key,
				LastUpdate: bm.LastUpdate,
			}

			ok := false
			switch mkt.Key {
			case contracts.MarketMoneyline:
				ok = fillTeamOutcomes(&line, mkt.Outcomes, ev.HomeTeam, ev.AwayTeam, false)
			case contracts.MarketSpread:
				ok = fillTeamOutcomes(&line, mkt.Outcomes, ev.HomeTeam, ev.AwayTeam, true)
			case contracts.MarketTotal:
				ok = fillTotalOutcomes(&line, mkt.Outcomes)
			}

			if ok {
				lines = append(lines, line)
			}
		}
	}

	return lines
}

// fillTeamOutcomes fills a line from home/away named outcomes.
// Returns false when either side is missing.
func fillTeamOutcomes(line *contracts.BookLine, outcomes []outcome, home, away string, wantPoint bool) bool {
	var haveHome, haveAway bool

	for _, o := range outcomes {
		switch o.Name {
		case home:
			line.PriceHome = o.Price
			if wantPoint {
				if o.Point == nil {
					return false
				}
				p := *o.Point
				line.Point = &p
			}
			haveHome = true
		case away:
			line.PriceAway = o.Price
			haveAway = true
		}
	}

	return haveHome && haveAway && (!wantPoint || line.Point != nil)
}

// fillTotalOutcomes fills a line from Over/Under outcomes.
func fillTotalOutcomes(line *contracts.BookLine, outcomes []outcome) bool {
	var haveOver, haveUnder bool

	for _, o := range outcomes {
		switch o.Name {
		case "Over":
			line.PriceHome = o.Price
			if o.Point == nil {
				return false
			}
			p := *o.Point
			line.Point = &p
			haveOver = true
		case "Under":
			line.PriceAway = o.Price
			haveUnder = true
		}
	}

	return haveOver && haveUnder && line.Point != nil
}

// decodeAPIError maps a non-200 response into an error with the feed's
// message when one is present.
func decodeAPIError(status int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("odds API error (%d): %s", status, apiErr.Message)
	}
	return fmt.Errorf("unexpected status code: %d", status)
}
