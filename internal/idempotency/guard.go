package idempotency

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// Key identifies one side-effecting stage execution. A caller retrying
// a run supplies the same key and gets the stored outcome back; a new
// key executes again.
type Key struct {
	RunID   string
	Stage   contracts.Stage
	IdemKey string
}

// Result is what a guarded execution hands back: either the fresh
// outcome or the stored one, byte for byte.
type Result struct {
	Status   string
	Body     json.RawMessage
	Replayed bool
}

// Guard wraps side-effecting stage executions with at-most-once
// semantics. The stage write and the idempotency row land in one
// transaction inside RunStore.CommitStage, so a crash between compute
// and commit re-executes cleanly and a committed stage never runs twice.
// ⭐ SSOT: 멱등성 판정은 여기서만
type Guard struct {
	store  contracts.RunStore
	logger *logger.Logger
}

// NewGuard creates a new idempotency guard
func NewGuard(store contracts.RunStore, log *logger.Logger) *Guard {
	return &Guard{
		store:  store,
		logger: log,
	}
}

// Execute runs compute under the key's at-most-once contract.
//
// A stored record for the tuple replays its status and body verbatim
// without calling compute; stored failures replay as failures. A fresh
// execution always persists the returned StageCommit, including the one
// describing a failed stage, then surfaces compute's error. Dry runs
// skip the lookup and the persistence entirely. An empty IdemKey skips
// only the replay lookup; the stage still commits.
func (g *Guard) Execute(ctx context.Context, key Key, dryRun bool, compute func(context.Context) (contracts.StageCommit, error)) (*Result, error) {
	if !dryRun && key.IdemKey != "" {
		rec, err := g.store.GetIdempotency(ctx, key.RunID, key.Stage, key.IdemKey)
		if err != nil {
			return nil, fmt.Errorf("failed to look up idempotency record: %w", err)
		}
		if rec != nil {
			g.logger.WithFields(map[string]interface{}{
				"run_id": key.RunID,
				"stage":  key.Stage.ShortName(),
				"status": rec.StoredStatus,
			}).Info("Replaying stored stage result")

			return &Result{
				Status:   rec.StoredStatus,
				Body:     rec.StoredBody,
				Replayed: true,
			}, nil
		}
	}

	commit, computeErr := compute(ctx)

	if !dryRun {
		commit.IdemKey = key.IdemKey
		if err := g.store.CommitStage(ctx, commit); err != nil {
			return nil, fmt.Errorf("failed to commit stage %s: %w", key.Stage.ShortName(), err)
		}
	}

	return &Result{
		Status: string(commit.Record.Status),
		Body:   commit.IdemBody,
	}, computeErr
}
