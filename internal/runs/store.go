package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// Store implements contracts.RunStore on PostgreSQL
// ⭐ SSOT: Run/Stage/Pick/멱등성 영속화는 여기서만
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new run store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateRun inserts the run row in its initial state
func (s *Store) CreateRun(ctx context.Context, run *contracts.Run) error {
	query := `
		INSERT INTO delphi.runs (
			run_id, game_id, bet_type, profile_id, profile_hash,
			status, state, triggered_by, dry_run, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		run.RunID, run.GameID, run.BetType, run.ProfileID, run.ProfileHash,
		run.Status, run.State, run.TriggeredBy, run.DryRun, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetRun retrieves a run with its stage records and pick.
// Returns nil without error when the run does not exist.
func (s *Store) GetRun(ctx context.Context, runID string) (*contracts.Run, error) {
	query := `
		SELECT run_id, game_id, bet_type, profile_id, profile_hash,
			status, state, triggered_by, dry_run,
			err_kind, err_stage, err_msg, started_at, finished_at
		FROM delphi.runs
		WHERE run_id = $1
	`

	var run contracts.Run
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&run.RunID, &run.GameID, &run.BetType, &run.ProfileID, &run.ProfileHash,
		&run.Status, &run.State, &run.TriggeredBy, &run.DryRun,
		&run.ErrKind, &run.ErrStage, &run.ErrMsg, &run.StartedAt, &run.FinishedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	stages, err := s.stageRecords(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Stages = stages

	pick, err := s.pick(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Pick = pick

	return &run, nil
}

// ListRuns retrieves the most recent runs without their stage trails
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*contracts.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT run_id, game_id, bet_type, profile_id, profile_hash,
			status, state, triggered_by, dry_run,
			err_kind, err_stage, err_msg, started_at, finished_at
		FROM delphi.runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*contracts.Run, 0)
	for rows.Next() {
		var run contracts.Run
		err := rows.Scan(
			&run.RunID, &run.GameID, &run.BetType, &run.ProfileID, &run.ProfileHash,
			&run.Status, &run.State, &run.TriggeredBy, &run.DryRun,
			&run.ErrKind, &run.ErrStage, &run.ErrMsg, &run.StartedAt, &run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// CommitStage applies one stage's full write set in a single
// transaction: stage record, run cursor, idempotency row and pick land
// together or not at all. Pick and idempotency inserts use
// ON CONFLICT DO NOTHING so a racing duplicate can never double-write.
func (s *Store) CommitStage(ctx context.Context, commit contracts.StageCommit) error {
	// Begin transaction
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	createdAt := commit.Record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	recordQuery := `
		INSERT INTO delphi.stage_records (
			run_id, stage, status, output, error, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = tx.Exec(ctx, recordQuery,
		commit.RunID, commit.Record.Stage, commit.Record.Status, commit.Record.Output,
		commit.Record.Error, commit.Record.DurationMS, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stage record: %w", err)
	}

	var errStage contracts.Stage
	if commit.ErrKind != "" {
		errStage = commit.Record.Stage
	}

	runQuery := `
		UPDATE delphi.runs
		SET status = $2, state = $3, err_kind = $4, err_stage = $5, err_msg = $6,
			finished_at = CASE WHEN $2 IN ('COMPLETE', 'FAILED') THEN NOW() ELSE NULL END
		WHERE run_id = $1
	`

	tag, err := tx.Exec(ctx, runQuery,
		commit.RunID, commit.RunStatus, commit.NewState,
		string(commit.ErrKind), errStage, commit.ErrMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", commit.RunID)
	}

	if commit.IdemKey != "" {
		idemQuery := `
			INSERT INTO delphi.idempotency_records (
				run_id, stage, key, stored_status, stored_body, created_at
			) VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (run_id, stage, key) DO NOTHING
		`

		_, err = tx.Exec(ctx, idemQuery,
			commit.RunID, commit.Record.Stage, commit.IdemKey,
			string(commit.Record.Status), commit.IdemBody,
		)
		if err != nil {
			return fmt.Errorf("failed to insert idempotency record: %w", err)
		}
	}

	if commit.Pick != nil {
		lockedOdds, err := json.Marshal(commit.Pick.LockedOdds)
		if err != nil {
			return fmt.Errorf("failed to marshal locked odds: %w", err)
		}

		pickQuery := `
			INSERT INTO delphi.picks (
				pick_id, run_id, game_id, bet_type, selection, units,
				confidence, edge_pts, locked_odds, narrative, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (run_id) DO NOTHING
		`

		_, err = tx.Exec(ctx, pickQuery,
			commit.Pick.PickID, commit.Pick.RunID, commit.Pick.GameID,
			commit.Pick.BetType, commit.Pick.Selection, commit.Pick.Units,
			commit.Pick.Confidence, commit.Pick.EdgePts, lockedOdds,
			commit.Pick.Narrative, commit.Pick.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert pick: %w", err)
		}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetIdempotency retrieves the stored outcome for a (run, stage, key)
// tuple. Returns nil without error when no record exists.
func (s *Store) GetIdempotency(ctx context.Context, runID string, stage contracts.Stage, key string) (*contracts.IdempotencyRecord, error) {
	query := `
		SELECT run_id, stage, key, stored_status, stored_body, created_at
		FROM delphi.idempotency_records
		WHERE run_id = $1 AND stage = $2 AND key = $3
	`

	var rec contracts.IdempotencyRecord
	err := s.pool.QueryRow(ctx, query, runID, stage, key).Scan(
		&rec.RunID, &rec.Stage, &rec.Key, &rec.StoredStatus, &rec.StoredBody, &rec.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}

	return &rec, nil
}

// stageRecords loads the audit trail in execution order
func (s *Store) stageRecords(ctx context.Context, runID string) ([]contracts.StageRecord, error) {
	query := `
		SELECT run_id, stage, status, output, error, duration_ms, created_at
		FROM delphi.stage_records
		WHERE run_id = $1
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage records: %w", err)
	}
	defer rows.Close()

	records := make([]contracts.StageRecord, 0)
	for rows.Next() {
		var rec contracts.StageRecord
		err := rows.Scan(
			&rec.RunID, &rec.Stage, &rec.Status, &rec.Output,
			&rec.Error, &rec.DurationMS, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// pick loads the run's pick if one was created
func (s *Store) pick(ctx context.Context, runID string) (*contracts.Pick, error) {
	query := `
		SELECT pick_id, run_id, game_id, bet_type, selection, units,
			confidence, edge_pts, locked_odds, narrative, created_at
		FROM delphi.picks
		WHERE run_id = $1
	`

	var pick contracts.Pick
	var lockedOdds []byte
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&pick.PickID, &pick.RunID, &pick.GameID, &pick.BetType, &pick.Selection,
		&pick.Units, &pick.Confidence, &pick.EdgePts, &lockedOdds,
		&pick.Narrative, &pick.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pick: %w", err)
	}

	if err := json.Unmarshal(lockedOdds, &pick.LockedOdds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal locked odds: %w", err)
	}

	return &pick, nil
}
