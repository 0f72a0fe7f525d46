package picks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// Repository implements contracts.PickReader
// ⭐ SSOT: Pick 조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new pick repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const pickColumns = `pick_id, run_id, game_id, bet_type, selection, units,
	confidence, edge_pts, locked_odds, narrative, created_at`

// GetByRun retrieves the pick a run produced.
// Returns nil without error when the run passed or does not exist.
func (r *Repository) GetByRun(ctx context.Context, runID string) (*contracts.Pick, error) {
	query := `
		SELECT ` + pickColumns + `
		FROM delphi.picks
		WHERE run_id = $1
	`

	pick, err := scanPick(r.pool.QueryRow(ctx, query, runID))
	if err == pgx.ErrNoRows {
		return nil, nil // Not found, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pick: %w", err)
	}

	return pick, nil
}

// ListRecent retrieves the most recent picks
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]*contracts.Pick, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + pickColumns + `
		FROM delphi.picks
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query picks: %w", err)
	}
	defer rows.Close()

	return collectPicks(rows)
}

// ListForDate retrieves picks created on a calendar day (UTC)
func (r *Repository) ListForDate(ctx context.Context, date time.Time) ([]*contracts.Pick, error) {
	day := date.UTC().Truncate(24 * time.Hour)

	query := `
		SELECT ` + pickColumns + `
		FROM delphi.picks
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to query picks for date: %w", err)
	}
	defer rows.Close()

	return collectPicks(rows)
}

// scanPick scans one pick row, decoding the frozen odds snapshot
func scanPick(row pgx.Row) (*contracts.Pick, error) {
	var pick contracts.Pick
	var lockedOdds []byte

	err := row.Scan(
		&pick.PickID, &pick.RunID, &pick.GameID, &pick.BetType, &pick.Selection,
		&pick.Units, &pick.Confidence, &pick.EdgePts, &lockedOdds,
		&pick.Narrative, &pick.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(lockedOdds, &pick.LockedOdds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal locked odds: %w", err)
	}

	return &pick, nil
}

func collectPicks(rows pgx.Rows) ([]*contracts.Pick, error) {
	picks := make([]*contracts.Pick, 0)
	for rows.Next() {
		pick, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		picks = append(picks, pick)
	}

	return picks, rows.Err()
}
