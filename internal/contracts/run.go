package contracts

import "time"

// TriggerSource records how a run was started. Manual and scheduled
// triggers share the identical pipeline path.
type TriggerSource string

const (
	TriggerManual    TriggerSource = "manual"
	TriggerScheduled TriggerSource = "scheduled"
)

// RunParams is the request that starts (or replays) a run.
//
// Game is the resolved slate entry for GameID. The trigger surface
// resolves it (scheduler from its slate scan, API/CLI from the line
// cache) so stage 1 records the chosen tuple without an external call.
// Resuming an existing run re-reads the game from the stored S1 output
// and ignores this field.
type RunParams struct {
	RunID          string        `json:"run_id,omitempty"` // empty → generated
	GameID         string        `json:"game_id"`
	BetType        BetType       `json:"bet_type"`
	Game           *Game         `json:"game,omitempty"`
	IdempotencyKey string        `json:"idempotency_key"`
	TriggeredBy    TriggerSource `json:"triggered_by"`
	DryRun         bool          `json:"dry_run"`
}

// Run is one decision attempt for a (game, bet type) tuple.
//
// Status tracks the overall outcome, State the stage cursor. Stages
// holds the audit trail in execution order. A run owns at most one
// Pick, created at S7 and never mutated afterwards.
type Run struct {
	RunID       string        `json:"run_id"`
	GameID      string        `json:"game_id"`
	BetType     BetType       `json:"bet_type"`
	ProfileID   string        `json:"profile_id"`
	ProfileHash string        `json:"profile_hash"`
	Status      RunStatus     `json:"status"`
	State       RunState      `json:"state"`
	TriggeredBy TriggerSource `json:"triggered_by"`
	DryRun      bool          `json:"dry_run"`
	Stages      []StageRecord `json:"stages,omitempty"`
	Pick        *Pick         `json:"pick,omitempty"`
	ErrKind     string        `json:"err_kind,omitempty"`
	ErrStage    Stage         `json:"err_stage,omitempty"`
	ErrMsg      string        `json:"err_msg,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
}

// CompletedStage returns the stored record for a stage that already
// completed in this run, if any. Resume and freeze semantics both read
// from here: once S2 completed, its snapshot is the run's market truth.
func (r *Run) CompletedStage(stage Stage) (*StageRecord, bool) {
	for i := range r.Stages {
		if r.Stages[i].Stage == stage && r.Stages[i].Status == StageOK {
			return &r.Stages[i], true
		}
	}
	return nil, false
}

// IdempotencyRecord binds a (run, stage, key) tuple to its stored
// outcome. A replay under the same tuple returns StoredBody verbatim
// and executes nothing.
type IdempotencyRecord struct {
	RunID        string    `json:"run_id"`
	Stage        Stage     `json:"stage"`
	Key          string    `json:"key"`
	StoredStatus string    `json:"stored_status"` // COMPLETED | FAILED | SKIPPED
	StoredBody   []byte    `json:"stored_body"`
	CreatedAt    time.Time `json:"created_at"`
}
