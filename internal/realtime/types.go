// Package realtime watches live market lines for the day's slate.
// The watcher feeds dashboards and staleness checks only — a run's
// decision always works from its frozen S2 snapshot, never from here.
package realtime

import (
	"time"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// GameLines is the latest per-book line set seen for one game
// ⭐ SSOT: 라이브 라인 데이터 구조
type GameLines struct {
	GameID    string               `json:"game_id"`
	SportKey  string               `json:"sport_key"`
	Lines     []contracts.BookLine `json:"lines"`
	Timestamp time.Time            `json:"timestamp"`
	Source    string               `json:"source"` // "STREAM", "POLL"
	IsStale   bool                 `json:"is_stale"`
}

// LineSource represents where a line update came from
type LineSource string

const (
	SourceStream LineSource = "STREAM"
	SourcePoll   LineSource = "POLL"
)

// Priority returns priority for source (higher = better). A streamed
// update beats a poll carrying the same timestamp.
func (s LineSource) Priority() int {
	switch s {
	case SourceStream:
		return 2
	case SourcePoll:
		return 1
	default:
		return 0
	}
}

// GamePriority scores how urgently a game's lines need refreshing.
type GamePriority struct {
	GameID     string    `json:"game_id"`
	StartsAt   time.Time `json:"starts_at"`
	HasOpenRun bool      `json:"has_open_run"`
	Score      float64   `json:"score"`
}

// CalculateScore calculates refresh priority. Lines move fastest in
// the hours before tip, and a game with a run in flight matters more
// than one nobody is deciding on.
func (gp *GamePriority) CalculateScore() float64 {
	score := 0.0

	untilTip := time.Until(gp.StartsAt)
	switch {
	case untilTip <= 0:
		// Tipped off: lines are closed, lowest priority
	case untilTip < time.Hour:
		score += 100.0
	case untilTip < 3*time.Hour:
		score += 50.0
	default:
		score += 20.0
	}

	if gp.HasOpenRun {
		score += 80.0
	}

	gp.Score = score
	return score
}

// Tier represents polling tier
type Tier int

const (
	Tier1 Tier = 1 // poll at the base cadence
	Tier2 Tier = 2 // 3x the base cadence
	Tier3 Tier = 3 // 6x the base cadence
)

// GetTierFromScore determines tier from priority score
func GetTierFromScore(score float64) Tier {
	if score >= 80.0 {
		return Tier1
	} else if score >= 40.0 {
		return Tier2
	}
	return Tier3
}
