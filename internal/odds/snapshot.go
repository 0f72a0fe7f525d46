package odds

import (
	"context"
	"math"
	"time"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// SnapshotBuilder freezes the market baseline for a run. Lines are
// fetched once, averaged across books per market, and never refreshed
// afterwards no matter how the market moves.
// ⭐ SSOT: 런의 오즈 스냅샷 생성은 여기서만
type SnapshotBuilder struct {
	provider contracts.OddsProvider
	logger   *logger.Logger
	maxStale time.Duration
	now      func() time.Time
}

// NewSnapshotBuilder creates a new snapshot builder. maxStale bounds
// how old a book's quote may be before it is excluded; zero disables
// the staleness guard.
func NewSnapshotBuilder(provider contracts.OddsProvider, maxStale time.Duration, log *logger.Logger) *SnapshotBuilder {
	return &SnapshotBuilder{
		provider: provider,
		logger:   log,
		maxStale: maxStale,
		now:      time.Now,
	}
}

// FindGame resolves a game ID against the provider's slate. The
// scheduler already holds its slate entry; manual triggers arrive with
// only the ID and resolve it here. Tomorrow is searched too so a late
// US evening game is still found across the UTC date line.
func (b *SnapshotBuilder) FindGame(ctx context.Context, sportKey, gameID string) (*contracts.Game, error) {
	today := b.now().UTC()
	for _, day := range []time.Time{today, today.Add(24 * time.Hour)} {
		games, err := b.provider.Slate(ctx, sportKey, day)
		if err != nil {
			return nil, contracts.ExternalProviderError("", "failed to fetch slate", err)
		}
		for i := range games {
			if games[i].GameID == gameID {
				return &games[i], nil
			}
		}
	}
	return nil, contracts.PreconditionFailed("", "game %s is not on the %s slate", gameID, sportKey)
}

// Snapshot captures the current market state for a game. The bet type
// decides which market must be reporting; a missing required market is
// a precondition failure, never a fabricated line.
func (b *SnapshotBuilder) Snapshot(ctx context.Context, game contracts.Game, betType contracts.BetType) (*contracts.OddsSnapshot, error) {
	lines, err := b.provider.Lines(ctx, game.SportKey, game.GameID)
	if err != nil {
		return nil, contracts.ExternalProviderError("", "failed to fetch market lines", err)
	}

	fresh, dropped := b.filterStale(lines)
	if dropped > 0 {
		b.logger.WithFields(map[string]interface{}{
			"game_id":   game.GameID,
			"dropped":   dropped,
			"max_stale": b.maxStale.String(),
		}).Warn("Dropped stale book lines")
	}

	if len(fresh) == 0 {
		return nil, contracts.PreconditionFailed("", "no sportsbook lines reporting for game %s", game.GameID)
	}

	snapshot := b.average(game, fresh)

	if !snapshot.HasMarket(betType) {
		return nil, contracts.PreconditionFailed("", "no books reporting the %s market for game %s", betType, game.GameID)
	}

	b.logger.WithFields(map[string]interface{}{
		"game_id":      game.GameID,
		"books":        snapshot.BooksConsidered,
		"spread":       snapshot.Spread,
		"total":        snapshot.Total,
		"spread_books": snapshot.SpreadBooks,
		"total_books":  snapshot.TotalBooks,
	}).Info("Captured odds snapshot")

	return snapshot, nil
}

// filterStale drops lines whose book timestamp has aged past the
// staleness bound. Lines without a timestamp count as stale.
func (b *SnapshotBuilder) filterStale(lines []contracts.BookLine) ([]contracts.BookLine, int) {
	if b.maxStale <= 0 {
		return lines, 0
	}

	cutoff := b.now().Add(-b.maxStale)
	fresh := make([]contracts.BookLine, 0, len(lines))
	for _, l := range lines {
		if l.LastUpdate.Before(cutoff) {
			continue
		}
		fresh = append(fresh, l)
	}

	return fresh, len(lines) - len(fresh)
}

// average collapses per-book lines into one snapshot. Each market value
// is the mean across the books reporting that market; points stay
// unrounded so a split consensus (say -3.75) survives.
func (b *SnapshotBuilder) average(game contracts.Game, lines []contracts.BookLine) *contracts.OddsSnapshot {
	var mlHome, mlAway, spreadSum, totalSum float64
	mlBooks, spreadBooks, totalBooks := 0, 0, 0
	books := make(map[string]struct{})

	for _, l := range lines {
		books[l.Book] = struct{}{}

		switch l.Market {
		case contracts.MarketMoneyline:
			mlHome += float64(l.PriceHome)
			mlAway += float64(l.PriceAway)
			mlBooks++
		case contracts.MarketSpread:
			if l.Point != nil {
				spreadSum += *l.Point
				spreadBooks++
			}
		case contracts.MarketTotal:
			if l.Point != nil {
				totalSum += *l.Point
				totalBooks++
			}
		}
	}

	snapshot := &contracts.OddsSnapshot{
		SportKey:        game.SportKey,
		GameID:          game.GameID,
		BooksConsidered: len(books),
		MoneylineBooks:  mlBooks,
		SpreadBooks:     spreadBooks,
		TotalBooks:      totalBooks,
		CapturedAt:      b.now().UTC(),
	}

	if mlBooks > 0 {
		snapshot.MoneylineHome = int(math.Round(mlHome / float64(mlBooks)))
		snapshot.MoneylineAway = int(math.Round(mlAway / float64(mlBooks)))
	}
	if spreadBooks > 0 {
		snapshot.Spread = spreadSum / float64(spreadBooks)
	}
	if totalBooks > 0 {
		snapshot.Total = totalSum / float64(totalBooks)
	}

	return snapshot
}
