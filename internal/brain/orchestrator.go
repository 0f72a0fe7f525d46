// Package brain drives one decision attempt through the seven-stage
// run pipeline: game selection, odds snapshot, factor computation,
// prediction, market adjustment, enrichment and finalization. The
// orchestrator owns sequencing, persistence and idempotency; the math
// lives in internal/engine and stays pure.
package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/internal/engine"
	"github.com/wonny/delphi/v2/backend/internal/idempotency"
	"github.com/wonny/delphi/v2/backend/internal/odds"
	"github.com/wonny/delphi/v2/backend/internal/profile"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
	"github.com/wonny/delphi/v2/backend/pkg/metrics"
)

// Orchestrator coordinates the 7-stage pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
//
// One Execute call is one run. Stages are strictly ordered; stage N's
// output is committed before stage N+1 sees it, and a completed stage
// is never recomputed on resume. Manual and scheduled triggers share
// this single code path.
type Orchestrator struct {
	// Stage collaborators
	snapshots *odds.SnapshotBuilder
	stats     contracts.StatsProvider
	injuries  contracts.InjuryProvider
	factors   contracts.FactorBuilder
	research  contracts.ResearchProvider // optional; nil skips S6
	notifier  contracts.Notifier         // optional; failures never fail a run

	// Persistence and replay
	store contracts.RunStore
	guard *idempotency.Guard

	profiles *profile.Registry
	metrics  *metrics.PipelineMetrics

	stageTimeout time.Duration
	gitCommit    string

	logger *logger.Logger
	now    func() time.Time
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	snapshots *odds.SnapshotBuilder,
	stats contracts.StatsProvider,
	injuries contracts.InjuryProvider,
	factors contracts.FactorBuilder,
	research contracts.ResearchProvider,
	notifier contracts.Notifier,
	store contracts.RunStore,
	guard *idempotency.Guard,
	profiles *profile.Registry,
	pipelineMetrics *metrics.PipelineMetrics,
	stageTimeout time.Duration,
	gitCommit string,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		snapshots:    snapshots,
		stats:        stats,
		injuries:     injuries,
		factors:      factors,
		research:     research,
		notifier:     notifier,
		store:        store,
		guard:        guard,
		profiles:     profiles,
		metrics:      pipelineMetrics,
		stageTimeout: stageTimeout,
		gitCommit:    gitCommit,
		logger:       log.WithComponent("brain"),
		now:          time.Now,
	}
}

// Execute runs the pipeline for one (game, bet type) tuple.
//
// A fresh call creates the run and walks S1 → S7. A call carrying the
// RunID of a COMPLETE run returns the stored run untouched. A call
// carrying the RunID of a FAILED run resumes from the first incomplete
// stage, reusing every persisted stage output — the S2 snapshot stays
// frozen no matter how long ago it was captured. Stored failures
// replay as failures under the same idempotency key; a new key is the
// caller's explicit request to try again.
//
// The returned run reflects everything that happened, including the
// audit trail, even when err is non-nil.
func (o *Orchestrator) Execute(ctx context.Context, params contracts.RunParams) (*contracts.Run, error) {
	if params.GameID == "" {
		return nil, contracts.ValidationError(contracts.StageGameSelect, "game_id is required")
	}
	if !contracts.IsValidBetType(string(params.BetType)) {
		return nil, contracts.ValidationError(contracts.StageGameSelect, "unknown bet type %q", params.BetType)
	}

	run, prof, err := o.resolveRun(ctx, params)
	if err != nil {
		return nil, err
	}
	if run.Status == contracts.RunComplete {
		o.logger.WithRun(run.RunID).Info("Run already complete, returning stored decision")
		return run, nil
	}

	idemKey := params.IdempotencyKey
	if idemKey == "" {
		idemKey = uuid.NewString()
	}

	log := o.logger.WithRun(run.RunID)
	log.WithFields(map[string]interface{}{
		"game_id":   run.GameID,
		"bet_type":  run.BetType,
		"profile":   run.ProfileID,
		"trigger":   run.TriggeredBy,
		"dry_run":   run.DryRun,
		"resumed":   len(run.Stages) > 0,
	}).Info("Starting pipeline run")

	started := o.now()
	run.Status = contracts.RunInProgress
	eng := engine.New(prof.ToEngineConfig())

	pipelineErr := o.runPipeline(ctx, run, params, prof, eng, idemKey)

	duration := o.now().Sub(started)
	if o.metrics != nil {
		o.metrics.RecordRun(string(run.TriggeredBy), string(run.Status), duration.Seconds())
	}

	if pipelineErr != nil {
		log.WithError(pipelineErr).WithField("stage", string(run.ErrStage)).Error("Pipeline run failed")
		return run, pipelineErr
	}

	log.WithFields(map[string]interface{}{
		"duration": duration.Seconds(),
		"verdict":  verdictOf(run),
	}).Info("Pipeline run completed")
	return run, nil
}

// resolveRun loads an existing run for resume or creates a fresh one.
// The resumed run keeps its stamped profile so a later profile change
// can never alter a decision already in flight.
func (o *Orchestrator) resolveRun(ctx context.Context, params contracts.RunParams) (*contracts.Run, *profile.Profile, error) {
	if params.RunID != "" && !params.DryRun {
		existing, err := o.store.GetRun(ctx, params.RunID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load run %s: %w", params.RunID, err)
		}
		if existing != nil {
			prof, ok := o.profiles.Get(existing.ProfileID)
			if !ok {
				return nil, nil, contracts.ConfigurationError(contracts.StageGameSelect,
					"profile %q stamped on run %s is not loaded", existing.ProfileID, existing.RunID)
			}
			return existing, prof, nil
		}
	}

	prof := o.profiles.Active()
	hash, err := profile.Hash(prof)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash active profile: %w", err)
	}

	runID := params.RunID
	if runID == "" {
		runID = GenerateRunID()
	}

	run := &contracts.Run{
		RunID:       runID,
		GameID:      params.GameID,
		BetType:     params.BetType,
		ProfileID:   prof.Meta.ProfileID,
		ProfileHash: hash,
		Status:      contracts.RunInProgress,
		State:       contracts.StateCreated,
		TriggeredBy: params.TriggeredBy,
		DryRun:      params.DryRun,
		StartedAt:   o.now().UTC(),
	}

	if !params.DryRun {
		if err := o.store.CreateRun(ctx, run); err != nil {
			return nil, nil, fmt.Errorf("failed to create run: %w", err)
		}
	}
	return run, prof, nil
}

// failureBody is the idempotency payload stored for a failed stage so
// a replay under the same key can reconstruct the original error.
type failureBody struct {
	ErrKind contracts.ErrorKind `json:"err_kind"`
	ErrMsg  string              `json:"err_msg"`
}

// stageValue is what a stage body hands back on success.
type stageValue struct {
	out     interface{}
	pick    *contracts.Pick        // only ever non-nil at S7
	status  contracts.StageStatus  // "" means COMPLETED
	runDone bool                   // S7 sets true
}

// execStage runs one stage under the idempotency guard and the
// per-stage timeout, returning the stage's JSON output.
//
// A stage the run already completed short-circuits to its stored
// output — this is both the resume path and the snapshot freeze. A
// fresh execution commits record, cursor, idempotency row and pick in
// one transaction via the guard; a failure commits a FAILED record and
// surfaces the stage error.
func (o *Orchestrator) execStage(
	ctx context.Context,
	run *contracts.Run,
	idemKey string,
	stage contracts.Stage,
	body func(context.Context) (stageValue, *contracts.StageError),
) (json.RawMessage, error) {
	if rec, ok := run.CompletedStage(stage); ok {
		o.logger.WithRun(run.RunID).WithStage(stage.ShortName()).Debug("Reusing completed stage output")
		return rec.Output, nil
	}

	stageCtx := ctx
	if o.stageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, o.stageTimeout)
		defer cancel()
	}

	var committed contracts.StageRecord
	stageStart := o.now()

	result, err := o.guard.Execute(stageCtx, idempotency.Key{RunID: run.RunID, Stage: stage, IdemKey: idemKey}, run.DryRun,
		func(cctx context.Context) (contracts.StageCommit, error) {
			value, stageErr := body(cctx)
			durationMS := o.now().Sub(stageStart).Milliseconds()

			if stageErr != nil {
				if stageErr.Stage == "" {
					stageErr = stageErr.WithStage(stage)
				}
				failRaw, _ := json.Marshal(failureBody{ErrKind: stageErr.Kind, ErrMsg: stageErr.Msg})
				committed = contracts.StageRecord{
					RunID:      run.RunID,
					Stage:      stage,
					Status:     contracts.StageErrored,
					Error:      stageErr.Error(),
					DurationMS: durationMS,
					CreatedAt:  o.now().UTC(),
				}
				return contracts.StageCommit{
					RunID:     run.RunID,
					Record:    committed,
					NewState:  contracts.StateFailed,
					RunStatus: contracts.RunFailed,
					ErrKind:   stageErr.Kind,
					ErrMsg:    stageErr.Msg,
					IdemBody:  failRaw,
				}, stageErr
			}

			raw, mErr := json.Marshal(value.out)
			if mErr != nil {
				stageErr = contracts.ValidationError(stage, "unencodable stage output: %v", mErr)
				committed = contracts.StageRecord{
					RunID:      run.RunID,
					Stage:      stage,
					Status:     contracts.StageErrored,
					Error:      stageErr.Error(),
					DurationMS: durationMS,
					CreatedAt:  o.now().UTC(),
				}
				return contracts.StageCommit{
					RunID:     run.RunID,
					Record:    committed,
					NewState:  contracts.StateFailed,
					RunStatus: contracts.RunFailed,
					ErrKind:   stageErr.Kind,
					ErrMsg:    stageErr.Msg,
				}, stageErr
			}

			status := value.status
			if status == "" {
				status = contracts.StageOK
			}
			runStatus := contracts.RunInProgress
			if value.runDone {
				runStatus = contracts.RunComplete
			}
			committed = contracts.StageRecord{
				RunID:      run.RunID,
				Stage:      stage,
				Status:     status,
				Output:     raw,
				DurationMS: durationMS,
				CreatedAt:  o.now().UTC(),
			}
			return contracts.StageCommit{
				RunID:     run.RunID,
				Record:    committed,
				NewState:  contracts.StateAfter(stage),
				RunStatus: runStatus,
				IdemBody:  raw,
				Pick:      value.pick,
			}, nil
		})

	if err != nil {
		o.markFailed(run, stage, err)
		if committed.Stage != "" {
			run.Stages = append(run.Stages, committed)
		}
		if o.metrics != nil {
			o.metrics.RecordStageError(stage.ShortName(), string(contracts.KindOf(err)))
		}
		return nil, err
	}

	if result.Replayed {
		if o.metrics != nil {
			o.metrics.RecordReplay(stage.ShortName())
		}
		if result.Status == string(contracts.StageErrored) {
			var fb failureBody
			if uErr := json.Unmarshal(result.Body, &fb); uErr != nil {
				fb = failureBody{ErrKind: contracts.KindExternalProvider, ErrMsg: "stored failure body unreadable"}
			}
			replayErr := &contracts.StageError{Kind: fb.ErrKind, Stage: stage, Msg: fb.ErrMsg}
			o.markFailed(run, stage, replayErr)
			return nil, replayErr
		}
		run.State = contracts.StateAfter(stage)
		return result.Body, nil
	}

	run.Stages = append(run.Stages, committed)
	run.State = contracts.StateAfter(stage)
	if o.metrics != nil {
		o.metrics.RecordStage(stage.ShortName(), o.now().Sub(stageStart).Seconds())
	}
	return result.Body, nil
}

// markFailed mirrors the persisted failure onto the in-memory run.
func (o *Orchestrator) markFailed(run *contracts.Run, stage contracts.Stage, err error) {
	now := o.now().UTC()
	run.Status = contracts.RunFailed
	run.State = contracts.StateFailed
	run.ErrKind = string(contracts.KindOf(err))
	run.ErrStage = stage
	run.ErrMsg = err.Error()
	run.FinishedAt = &now
}

// decodeStageOutput unmarshals a stored stage output into v.
func decodeStageOutput(stage contracts.Stage, raw json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s output: %w", stage.ShortName(), err)
	}
	return nil
}

func verdictOf(run *contracts.Run) string {
	if run.Pick != nil {
		return string(contracts.VerdictPick)
	}
	return string(contracts.VerdictPass)
}

// GenerateRunID generates a unique run ID. The date prefix keeps run
// lists scannable; the uuid suffix keeps concurrent slate runs from
// colliding.
func GenerateRunID() string {
	return fmt.Sprintf("run_%s_%s", time.Now().UTC().Format("20060102"), uuid.NewString()[:8])
}
