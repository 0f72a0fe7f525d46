package brain

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/internal/engine"
	"github.com/wonny/delphi/v2/backend/internal/factors"
	"github.com/wonny/delphi/v2/backend/internal/profile"
)

// Stage outputs. Each struct is the durable audit record of one stage
// and the input contract of the next — a resumed run rebuilds its
// entire context from these and nothing else.

type gameSelectOutput struct {
	Game        contracts.Game          `json:"game"`
	BetType     contracts.BetType       `json:"bet_type"`
	Stamp       profile.DecisionStamp   `json:"stamp"`
	TriggeredBy contracts.TriggerSource `json:"triggered_by"`
}

type factorsOutput struct {
	Factors     []contracts.Factor `json:"factors"`
	BaselineAvg float64            `json:"baseline_avg"`
	LeaguePace  float64            `json:"league_pace"`
}

type marketAdjustOutput struct {
	MarketFactor contracts.Factor           `json:"market_factor"`
	Confidence   contracts.ConfidenceResult `json:"confidence"`
	EdgeSidePts  float64                    `json:"edge_side_pts"`
	EdgeTotalPts float64                    `json:"edge_total_pts"`
}

type enrichOutput struct {
	Skipped   bool                 `json:"skipped"`
	Reason    string               `json:"reason,omitempty"`
	Narrative *contracts.Narrative `json:"narrative,omitempty"`
}

type finalizeOutput struct {
	Decision contracts.Decision `json:"decision"`
	Pick     *contracts.Pick    `json:"pick,omitempty"`
}

// runPipeline walks S1 → S7 in order, feeding each stage the decoded
// outputs of the stages before it.
func (o *Orchestrator) runPipeline(
	ctx context.Context,
	run *contracts.Run,
	params contracts.RunParams,
	prof *profile.Profile,
	eng *engine.Engine,
	idemKey string,
) error {
	// S1: resolve and pin the (game, bet type) tuple and stamp the
	// deciding profile. The scheduler hands its slate entry in; a manual
	// trigger carries only the ID and resolves it against the provider's
	// slate here, so both surfaces enter with the same contract.
	s1Raw, err := o.execStage(ctx, run, idemKey, contracts.StageGameSelect,
		func(sctx context.Context) (stageValue, *contracts.StageError) {
			entry := params.Game
			if entry == nil {
				resolved, fErr := o.snapshots.FindGame(sctx, prof.Meta.SportKey, params.GameID)
				if fErr != nil {
					return stageValue{}, asStageError(fErr, "slate lookup failed")
				}
				entry = resolved
			}
			if entry.GameID != params.GameID {
				return stageValue{}, contracts.ValidationError("", "slate entry %s does not match requested game %s", entry.GameID, params.GameID)
			}
			game := *entry
			if game.SportKey == "" {
				game.SportKey = prof.Meta.SportKey
			}
			stamp, stErr := profile.NewDecisionStamp(prof, o.profiles.RawYAML(prof.Meta.ProfileID), o.gitCommit)
			if stErr != nil {
				return stageValue{}, contracts.ConfigurationError("", "failed to stamp deciding profile: %v", stErr)
			}
			return stageValue{out: gameSelectOutput{
				Game:        game,
				BetType:     run.BetType,
				Stamp:       *stamp,
				TriggeredBy: run.TriggeredBy,
			}}, nil
		})
	if err != nil {
		return err
	}
	var s1 gameSelectOutput
	if err := decodeStageOutput(contracts.StageGameSelect, s1Raw, &s1); err != nil {
		return err
	}

	// S2: capture and freeze the market baseline.
	s2Raw, err := o.execStage(ctx, run, idemKey, contracts.StageSnapshot,
		func(sctx context.Context) (stageValue, *contracts.StageError) {
			snapshot, sErr := o.snapshots.Snapshot(sctx, s1.Game, run.BetType)
			if sErr != nil {
				return stageValue{}, asStageError(sErr, "snapshot capture failed")
			}
			return stageValue{out: snapshot}, nil
		})
	if err != nil {
		return err
	}
	var snapshot contracts.OddsSnapshot
	if err := decodeStageOutput(contracts.StageSnapshot, s2Raw, &snapshot); err != nil {
		return err
	}

	// S3: fetch the game context and build the weighted factor set.
	s3Raw, err := o.execStage(ctx, run, idemKey, contracts.StageFactors,
		func(sctx context.Context) (stageValue, *contracts.StageError) {
			out, sErr := o.computeFactors(sctx, s1.Game, prof)
			if sErr != nil {
				return stageValue{}, sErr
			}
			return stageValue{out: out}, nil
		})
	if err != nil {
		return err
	}
	var s3 factorsOutput
	if err := decodeStageOutput(contracts.StageFactors, s3Raw, &s3); err != nil {
		return err
	}

	// S4: convert factor-weighted edges into the model's own numbers.
	s4Raw, err := o.execStage(ctx, run, idemKey, contracts.StagePredict,
		func(context.Context) (stageValue, *contracts.StageError) {
			pred, sErr := o.predict(run.BetType, s3, prof, eng)
			if sErr != nil {
				return stageValue{}, sErr
			}
			return stageValue{out: pred}, nil
		})
	if err != nil {
		return err
	}
	var pred contracts.Prediction
	if err := decodeStageOutput(contracts.StagePredict, s4Raw, &pred); err != nil {
		return err
	}

	// S5: compare model vs frozen market and re-aggregate.
	s5Raw, err := o.execStage(ctx, run, idemKey, contracts.StageMarketAdjust,
		func(context.Context) (stageValue, *contracts.StageError) {
			out, sErr := o.marketAdjust(run.BetType, snapshot, pred, s3.Factors, eng)
			if sErr != nil {
				return stageValue{}, sErr
			}
			return stageValue{out: out}, nil
		})
	if err != nil {
		return err
	}
	var s5 marketAdjustOutput
	if err := decodeStageOutput(contracts.StageMarketAdjust, s5Raw, &s5); err != nil {
		return err
	}
	if o.metrics != nil {
		o.metrics.RecordEdge(string(contracts.BetSpread), s5.EdgeSidePts)
		o.metrics.RecordEdge(string(contracts.BetTotal), s5.EdgeTotalPts)
	}

	// S6: optional narrative enrichment. The one stage whose failure is
	// recorded but never fatal.
	s6Raw, err := o.execStage(ctx, run, idemKey, contracts.StageEnrich,
		func(sctx context.Context) (stageValue, *contracts.StageError) {
			return o.enrich(sctx, run, s1.Game, snapshot, pred, s5, prof), nil
		})
	if err != nil {
		return err
	}
	var s6 enrichOutput
	if err := decodeStageOutput(contracts.StageEnrich, s6Raw, &s6); err != nil {
		return err
	}

	// S7: verdict, and the immutable pick on PICK.
	s7Raw, err := o.execStage(ctx, run, idemKey, contracts.StageFinalize,
		func(context.Context) (stageValue, *contracts.StageError) {
			return o.finalize(run, snapshot, s5, s6, eng)
		})
	if err != nil {
		return err
	}
	var s7 finalizeOutput
	if err := decodeStageOutput(contracts.StageFinalize, s7Raw, &s7); err != nil {
		return err
	}

	now := o.now().UTC()
	run.Status = contracts.RunComplete
	run.State = contracts.StateFinalized
	run.FinishedAt = &now
	run.Pick = s7.Pick

	if o.metrics != nil {
		o.metrics.RecordPick(string(s7.Decision.BetType), string(s7.Decision.Verdict), s7.Decision.Units, s7.Decision.ConfScore)
	}
	if s7.Pick != nil && !run.DryRun && o.notifier != nil {
		if nErr := o.notifier.NotifyPick(ctx, s7.Pick, &s1.Game); nErr != nil {
			o.logger.WithRun(run.RunID).WithError(nErr).Warn("Pick notification failed")
		}
	}
	return nil
}

// computeFactors gathers the game context from the stats and injury
// providers and hands it to the factor builder. The injury scrape is
// skipped when the profile has the family disabled; every other
// provider failure halts the stage.
func (o *Orchestrator) computeFactors(ctx context.Context, game contracts.Game, prof *profile.Profile) (*factorsOutput, *contracts.StageError) {
	homeForm, err := o.stats.TeamForm(ctx, game.SportKey, game.HomeTeam)
	if err != nil {
		return nil, contracts.ExternalProviderError("", "home team form fetch failed", err)
	}
	awayForm, err := o.stats.TeamForm(ctx, game.SportKey, game.AwayTeam)
	if err != nil {
		return nil, contracts.ExternalProviderError("", "away team form fetch failed", err)
	}
	baselineAvg, leaguePace, err := o.stats.LeagueBaseline(ctx, game.SportKey)
	if err != nil {
		return nil, contracts.ExternalProviderError("", "league baseline fetch failed", err)
	}

	var injuries []contracts.InjuryReport
	if _, enabled := prof.Weights.EnabledWeight(factors.KeyInjuries); enabled {
		for _, team := range []string{game.HomeTeam, game.AwayTeam} {
			reports, iErr := o.injuries.Reports(ctx, game.SportKey, team)
			if iErr != nil {
				return nil, contracts.ExternalProviderError("", "injury report fetch failed for "+team, iErr)
			}
			injuries = append(injuries, reports...)
		}
	}

	gameCtx := &contracts.GameContext{
		Game:        game,
		HomeForm:    *homeForm,
		AwayForm:    *awayForm,
		Injuries:    injuries,
		LeaguePace:  leaguePace,
		BaselineAvg: baselineAvg,
	}
	factorSet, err := o.factors.Build(gameCtx, prof.Weights)
	if err != nil {
		return nil, asStageError(err, "factor build failed")
	}
	return &factorsOutput{Factors: factorSet, BaselineAvg: baselineAvg, LeaguePace: leaguePace}, nil
}

// predict aggregates the scoped factor sets into per-market edges and
// anchors them to point values. The run's own market must have at
// least one factor; the other market is optional and only feeds the
// S7 tie-break.
func (o *Orchestrator) predict(bt contracts.BetType, s3 factorsOutput, prof *profile.Profile, eng *engine.Engine) (*contracts.Prediction, *contracts.StageError) {
	scopedTotal := engine.FilterScope(s3.Factors, contracts.BetTotal)
	scopedSide := engine.FilterScope(s3.Factors, contracts.BetSpread)

	in := engine.PredictInput{
		TotalAvailable: len(scopedTotal) > 0,
		SideAvailable:  len(scopedSide) > 0,
	}
	switch bt {
	case contracts.BetTotal:
		if !in.TotalAvailable {
			return nil, contracts.InsufficientSignal("", "no TOTAL-scoped factors for a TOTAL run")
		}
	case contracts.BetSpread:
		if !in.SideAvailable {
			return nil, contracts.InsufficientSignal("", "no SPREAD-scoped factors for a SPREAD run")
		}
	}

	if in.TotalAvailable {
		agg, err := eng.Aggregate(scopedTotal)
		if err != nil {
			return nil, asStageError(err, "total aggregation failed")
		}
		in.EdgeRawTotal = agg.EdgeRaw
	}
	if in.SideAvailable {
		agg, err := eng.Aggregate(scopedSide)
		if err != nil {
			return nil, asStageError(err, "side aggregation failed")
		}
		in.EdgeRawSide = agg.EdgeRaw
	}

	in.Baseline = s3.BaselineAvg
	if in.Baseline <= 0 {
		in.Baseline = prof.Prediction.FallbackBaselineTotal
	}
	if in.TotalAvailable && in.Baseline <= 0 {
		return nil, contracts.ConfigurationError("", "no league baseline and no fallback_baseline_total in profile")
	}

	return eng.Predict(in), nil
}

// marketAdjust builds the always-full-weight market-edge factor from
// the frozen snapshot and re-runs the aggregation with it included.
// Both markets' point edges come out here so S7 can tie-break.
func (o *Orchestrator) marketAdjust(
	bt contracts.BetType,
	snapshot contracts.OddsSnapshot,
	pred contracts.Prediction,
	factorSet []contracts.Factor,
	eng *engine.Engine,
) (*marketAdjustOutput, *contracts.StageError) {
	var predicted, line float64
	if bt == contracts.BetTotal {
		predicted, line = pred.PredictedTotal, snapshot.Total
	} else {
		predicted, line = pred.PredictedMargin, snapshot.ImpliedMargin()
	}

	marketFactor, err := eng.BuildMarketEdgeFactor(bt, predicted, line)
	if err != nil {
		return nil, asStageError(err, "market edge factor build failed")
	}

	scoped := engine.FilterScope(factorSet, bt)
	conf, err := eng.Aggregate(append(scoped, *marketFactor))
	if err != nil {
		return nil, asStageError(err, "final aggregation failed")
	}

	out := &marketAdjustOutput{MarketFactor: *marketFactor, Confidence: *conf}
	if pred.TotalAvailable && snapshot.TotalBooks > 0 {
		out.EdgeTotalPts = pred.PredictedTotal - snapshot.Total
	}
	if pred.SideAvailable && snapshot.SpreadBooks > 0 {
		out.EdgeSidePts = pred.PredictedMargin - snapshot.ImpliedMargin()
	}
	return out, nil
}

// enrich generates the optional S6 narrative. Disabled or failed
// enrichment records a skip; it never returns a stage error.
func (o *Orchestrator) enrich(
	ctx context.Context,
	run *contracts.Run,
	game contracts.Game,
	snapshot contracts.OddsSnapshot,
	pred contracts.Prediction,
	s5 marketAdjustOutput,
	prof *profile.Profile,
) stageValue {
	if o.research == nil || !prof.Enrichment.Enabled {
		return stageValue{
			out:    enrichOutput{Skipped: true, Reason: "enrichment disabled"},
			status: contracts.StageSkipped,
		}
	}

	narrative, err := o.research.Narrative(ctx, contracts.ResearchInput{
		Game:            game,
		BetType:         run.BetType,
		PredictedTotal:  pred.PredictedTotal,
		PredictedMargin: pred.PredictedMargin,
		MarketTotal:     snapshot.Total,
		MarketSpread:    snapshot.Spread,
		ConfScore:       s5.Confidence.ConfScore,
	})
	if err != nil {
		o.logger.WithRun(run.RunID).WithError(err).Warn("Enrichment failed, continuing without narrative")
		return stageValue{
			out:    enrichOutput{Skipped: true, Reason: err.Error()},
			status: contracts.StageSkipped,
		}
	}
	return stageValue{out: enrichOutput{Narrative: narrative}}
}

// finalize caps the edges, asks the decision engine for the verdict,
// and on PICK builds the immutable pick bound to the frozen snapshot.
func (o *Orchestrator) finalize(
	run *contracts.Run,
	snapshot contracts.OddsSnapshot,
	s5 marketAdjustOutput,
	s6 enrichOutput,
	eng *engine.Engine,
) (stageValue, *contracts.StageError) {
	decision, err := eng.Decide(engine.DecideInput{
		ConfScore:    s5.Confidence.ConfScore,
		EdgeSidePts:  s5.EdgeSidePts,
		EdgeTotalPts: s5.EdgeTotalPts,
		MarketSpread: snapshot.Spread,
		MarketTotal:  snapshot.Total,
	})
	if err != nil {
		return stageValue{}, asStageError(err, "decision failed")
	}

	out := finalizeOutput{Decision: *decision}
	if decision.Verdict == contracts.VerdictPick {
		edge := decision.EdgeTotalPts
		if decision.BetType == contracts.BetSpread {
			edge = decision.EdgeSidePts
		}
		var narrative string
		if s6.Narrative != nil {
			narrative = s6.Narrative.Summary
		}
		out.Pick = &contracts.Pick{
			PickID:     "pick_" + uuid.NewString()[:8],
			RunID:      run.RunID,
			GameID:     run.GameID,
			BetType:    decision.BetType,
			Selection:  decision.Selection,
			Units:      decision.Units,
			Confidence: decision.ConfScore,
			EdgePts:    edge,
			LockedOdds: snapshot,
			Narrative:  narrative,
			CreatedAt:  o.now().UTC(),
		}
	}
	return stageValue{out: out, pick: out.Pick, runDone: true}, nil
}

// asStageError keeps an existing stage error's kind and wraps anything
// else as a provider failure.
func asStageError(err error, msg string) *contracts.StageError {
	var se *contracts.StageError
	if errors.As(err, &se) {
		return se
	}
	return contracts.ExternalProviderError("", msg, err)
}
