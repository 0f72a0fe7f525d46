package contracts

import (
	"context"
	"encoding/json"
	"time"
)

// ⭐ SSOT: 저장소 인터페이스 정의는 여기서만

// StageCommit is everything one stage execution writes. Implementations
// MUST apply the whole struct in a single transaction: stage record,
// run cursor, idempotency row, and pick all land together or not at all.
type StageCommit struct {
	RunID     string
	Record    StageRecord
	NewState  RunState
	RunStatus RunStatus
	ErrKind   ErrorKind // set when Record.Status == StageErrored
	ErrMsg    string
	IdemKey   string
	IdemBody  json.RawMessage
	Pick      *Pick // only ever non-nil at S7 on a PICK verdict
}

// RunStore persists runs, stage records, idempotency rows and picks.
// GetIdempotency returns nil without error when no record exists for
// the tuple.
type RunStore interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	CommitStage(ctx context.Context, commit StageCommit) error
	GetIdempotency(ctx context.Context, runID string, stage Stage, key string) (*IdempotencyRecord, error)
}

// PickReader serves persisted picks to the API and CLI surfaces.
type PickReader interface {
	GetByRun(ctx context.Context, runID string) (*Pick, error)
	ListRecent(ctx context.Context, limit int) ([]*Pick, error)
	ListForDate(ctx context.Context, date time.Time) ([]*Pick, error)
}
