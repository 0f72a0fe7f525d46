package contracts

import "time"

// BetType is the market family a run targets
type BetType string

const (
	BetTotal  BetType = "TOTAL"
	BetSpread BetType = "SPREAD"
)

// IsValidBetType checks if a bet type string is valid
func IsValidBetType(s string) bool {
	return s == string(BetTotal) || s == string(BetSpread)
}

// Selection is the side of the market a pick takes
type Selection string

const (
	SelectionOver  Selection = "OVER"
	SelectionUnder Selection = "UNDER"
	SelectionHome  Selection = "HOME"
	SelectionAway  Selection = "AWAY"
)

// Game identifies one schedulable matchup on the slate
type Game struct {
	GameID   string    `json:"game_id"`
	SportKey string    `json:"sport_key"` // e.g. "basketball_nba"
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	StartsAt time.Time `json:"starts_at"`
}

// Market keys as the odds feed reports them
const (
	MarketMoneyline = "h2h"
	MarketSpread    = "spreads"
	MarketTotal     = "totals"
)

// BookLine is one sportsbook's quote for one market.
// Prices are American odds; Point is nil for moneyline markets.
type BookLine struct {
	Book       string    `json:"book"`
	Market     string    `json:"market"`
	PriceHome  int       `json:"price_home"`
	PriceAway  int       `json:"price_away"`
	Point      *float64  `json:"point,omitempty"` // home line for spreads, total for totals
	LastUpdate time.Time `json:"last_update"`
}

// OddsSnapshot is the market state frozen at S2 and used unchanged for
// the remainder of the run, no matter how lines move afterwards.
//
// Spread follows the home-line convention: negative when the home team
// is favored. Each market value is the mean across reporting books.
// ⭐ SSOT: 런의 마켓 기준선은 이 스냅샷 하나뿐
type OddsSnapshot struct {
	SportKey        string    `json:"sport_key"`
	GameID          string    `json:"game_id"`
	MoneylineHome   int       `json:"moneyline_home"`
	MoneylineAway   int       `json:"moneyline_away"`
	Spread          float64   `json:"spread"` // home line
	Total           float64   `json:"total"`
	BooksConsidered int       `json:"books_considered"`
	MoneylineBooks  int       `json:"moneyline_books"`
	SpreadBooks     int       `json:"spread_books"`
	TotalBooks      int       `json:"total_books"`
	CapturedAt      time.Time `json:"captured_at"`
}

// ImpliedMargin converts the home spread line into the margin the
// market expects (home minus away).
func (s OddsSnapshot) ImpliedMargin() float64 {
	return -s.Spread
}

// HasMarket reports whether at least one book reported the market the
// given bet type needs.
func (s OddsSnapshot) HasMarket(bt BetType) bool {
	switch bt {
	case BetTotal:
		return s.TotalBooks > 0
	case BetSpread:
		return s.SpreadBooks > 0
	default:
		return false
	}
}

// TeamForm is the stats feed's per-team snapshot consumed by the factor
// calculators.
type TeamForm struct {
	Team       string  `json:"team"`
	WinPct10   float64 `json:"win_pct_10"` // last 10 games
	Streak     int     `json:"streak"`     // positive = winning streak
	NetRating  float64 `json:"net_rating"`
	OffRating  float64 `json:"off_rating"`
	DefRating  float64 `json:"def_rating"`
	Pace       float64 `json:"pace"`
	RestDays   int     `json:"rest_days"`
	BackToBack bool    `json:"back_to_back"`
}

// InjuryReport is one player's availability entry from the injury feed.
type InjuryReport struct {
	Team       string  `json:"team"`
	Player     string  `json:"player"`
	Status     string  `json:"status"`      // OUT, DOUBTFUL, QUESTIONABLE, PROBABLE
	ImpactRank float64 `json:"impact_rank"` // 0..1, rotation importance
	Note       string  `json:"note,omitempty"`
}

// GameContext bundles everything S3 fetched for the factor calculators.
// Calculators are pure over this struct; all provider I/O happens
// before it is built.
type GameContext struct {
	Game        Game           `json:"game"`
	HomeForm    TeamForm       `json:"home_form"`
	AwayForm    TeamForm       `json:"away_form"`
	Injuries    []InjuryReport `json:"injuries"`
	LeaguePace  float64        `json:"league_pace"`
	BaselineAvg float64        `json:"baseline_avg"` // league average total points
}
