package contracts

import (
	"context"
	"time"
)

// OddsProvider serves the slate and per-book market lines (S2)
// ⭐ SSOT: S2 오즈 수집 인터페이스
type OddsProvider interface {
	Slate(ctx context.Context, sportKey string, date time.Time) ([]Game, error)
	Lines(ctx context.Context, sportKey, gameID string) ([]BookLine, error)
}

// StatsProvider serves team form and league baselines (S3)
// ⭐ SSOT: S3 팀 스탯 인터페이스
type StatsProvider interface {
	TeamForm(ctx context.Context, sportKey, team string) (*TeamForm, error)
	LeagueBaseline(ctx context.Context, sportKey string) (float64, float64, error) // avg total, avg pace
}

// InjuryProvider serves player availability reports (S3)
type InjuryProvider interface {
	Reports(ctx context.Context, sportKey, team string) ([]InjuryReport, error)
}

// FactorBuilder turns a fetched game context into weighted factors (S3)
// ⭐ SSOT: S3 팩터 생성 인터페이스
type FactorBuilder interface {
	Build(gameCtx *GameContext, weights WeightConfig) ([]Factor, error)
}

// ResearchProvider generates the optional S6 narrative. Failures are
// non-fatal to the run.
type ResearchProvider interface {
	Narrative(ctx context.Context, input ResearchInput) (*Narrative, error)
}

// Notifier announces finalized picks. Implementations must be safe to
// call concurrently; delivery failure never fails a run.
type Notifier interface {
	NotifyPick(ctx context.Context, pick *Pick, game *Game) error
}
