package odds

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

type fakeOddsProvider struct {
	lines    []contracts.BookLine
	slates   map[string][]contracts.Game // keyed by yyyymmdd
	slateErr error
	err      error
}

func (f *fakeOddsProvider) Slate(ctx context.Context, sportKey string, date time.Time) ([]contracts.Game, error) {
	if f.slateErr != nil {
		return nil, f.slateErr
	}
	return f.slates[date.Format("20060102")], nil
}

func (f *fakeOddsProvider) Lines(ctx context.Context, sportKey, gameID string) ([]contracts.BookLine, error) {
	return f.lines, f.err
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "console"})
}

func testGame() contracts.Game {
	return contracts.Game{
		GameID:   "nba-20260115-BOS-LAL",
		SportKey: "basketball_nba",
		HomeTeam: "Boston Celtics",
		AwayTeam: "Los Angeles Lakers",
	}
}

func fptr(v float64) *float64 { return &v }

var captureTime = time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)

func testBuilder(provider contracts.OddsProvider, maxStale time.Duration) *SnapshotBuilder {
	b := NewSnapshotBuilder(provider, maxStale, testLogger())
	b.now = func() time.Time { return captureTime }
	return b
}

func threeBookLines() []contracts.BookLine {
	fresh := captureTime.Add(-2 * time.Minute)
	return []contracts.BookLine{
		{Book: "draftkings", Market: contracts.MarketMoneyline, PriceHome: -150, PriceAway: 130, LastUpdate: fresh},
		{Book: "draftkings", Market: contracts.MarketSpread, Point: fptr(-3.5), LastUpdate: fresh},
		{Book: "draftkings", Market: contracts.MarketTotal, Point: fptr(224.5), LastUpdate: fresh},
		{Book: "fanduel", Market: contracts.MarketMoneyline, PriceHome: -155, PriceAway: 135, LastUpdate: fresh},
		{Book: "fanduel", Market: contracts.MarketSpread, Point: fptr(-4.0), LastUpdate: fresh},
		{Book: "fanduel", Market: contracts.MarketTotal, Point: fptr(225.0), LastUpdate: fresh},
		{Book: "betmgm", Market: contracts.MarketSpread, Point: fptr(-3.5), LastUpdate: fresh},
		{Book: "betmgm", Market: contracts.MarketTotal, Point: fptr(224.0), LastUpdate: fresh},
	}
}

func TestFindGameResolvesAcrossDateLine(t *testing.T) {
	today := captureTime.Format("20060102")
	tomorrow := captureTime.Add(24 * time.Hour).Format("20060102")
	provider := &fakeOddsProvider{slates: map[string][]contracts.Game{
		today:    {{GameID: "nba-20260115-GSW-DEN", SportKey: "basketball_nba"}},
		tomorrow: {{GameID: "nba-20260116-BOS-LAL", SportKey: "basketball_nba", HomeTeam: "Boston Celtics"}},
	}}
	b := testBuilder(provider, 0)

	game, err := b.FindGame(context.Background(), "basketball_nba", "nba-20260116-BOS-LAL")
	if err != nil {
		t.Fatalf("FindGame() error = %v", err)
	}
	if game.HomeTeam != "Boston Celtics" {
		t.Errorf("resolved %+v, want tomorrow's slate entry", game)
	}
}

func TestFindGameNotOnSlate(t *testing.T) {
	b := testBuilder(&fakeOddsProvider{}, 0)

	_, err := b.FindGame(context.Background(), "basketball_nba", "nba-unknown")
	if !contracts.IsKind(err, contracts.KindPreconditionFailed) {
		t.Errorf("error = %v, want PRECONDITION_FAILED", err)
	}
}

func TestFindGameProviderError(t *testing.T) {
	b := testBuilder(&fakeOddsProvider{slateErr: errors.New("feed down")}, 0)

	_, err := b.FindGame(context.Background(), "basketball_nba", "nba-20260115-BOS-LAL")
	if !contracts.IsKind(err, contracts.KindExternalProvider) {
		t.Errorf("error = %v, want EXTERNAL_PROVIDER", err)
	}
}

func TestSnapshotAveragesAcrossBooks(t *testing.T) {
	b := testBuilder(&fakeOddsProvider{lines: threeBookLines()}, 15*time.Minute)

	snap, err := b.Snapshot(context.Background(), testGame(), contracts.BetTotal)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if snap.BooksConsidered != 3 {
		t.Errorf("BooksConsidered = %d, want 3", snap.BooksConsidered)
	}
	if snap.MoneylineBooks != 2 || snap.SpreadBooks != 3 || snap.TotalBooks != 3 {
		t.Errorf("market book counts = %d/%d/%d, want 2/3/3",
			snap.MoneylineBooks, snap.SpreadBooks, snap.TotalBooks)
	}

	// (-150 + -155) / 2 = -152.5, rounded away from zero
	if snap.MoneylineHome != -153 {
		t.Errorf("MoneylineHome = %d, want -153", snap.MoneylineHome)
	}
	if snap.MoneylineAway != 133 {
		t.Errorf("MoneylineAway = %d, want 133", snap.MoneylineAway)
	}

	// (-3.5 + -4.0 + -3.5) / 3
	if math.Abs(snap.Spread-(-11.0/3.0)) > 1e-12 {
		t.Errorf("Spread = %v, want %v", snap.Spread, -11.0/3.0)
	}
	if math.Abs(snap.Total-224.5) > 1e-12 {
		t.Errorf("Total = %v, want 224.5", snap.Total)
	}

	if !snap.CapturedAt.Equal(captureTime) {
		t.Errorf("CapturedAt = %v, want %v", snap.CapturedAt, captureTime)
	}
}

func TestSnapshotRequiredMarketMissing(t *testing.T) {
	fresh := captureTime.Add(-time.Minute)
	lines := []contracts.BookLine{
		{Book: "draftkings", Market: contracts.MarketMoneyline, PriceHome: -150, PriceAway: 130, LastUpdate: fresh},
		{Book: "draftkings", Market: contracts.MarketSpread, Point: fptr(-3.5), LastUpdate: fresh},
	}
	b := testBuilder(&fakeOddsProvider{lines: lines}, 15*time.Minute)

	_, err := b.Snapshot(context.Background(), testGame(), contracts.BetTotal)
	if err == nil {
		t.Fatal("expected precondition failure without a totals market")
	}
	if !contracts.IsKind(err, contracts.KindPreconditionFailed) {
		t.Errorf("error kind = %s, want %s", contracts.KindOf(err), contracts.KindPreconditionFailed)
	}

	// The spread market is reporting, so a spread run succeeds
	snap, err := b.Snapshot(context.Background(), testGame(), contracts.BetSpread)
	if err != nil {
		t.Fatalf("Snapshot(spread) error = %v", err)
	}
	if snap.Spread != -3.5 {
		t.Errorf("Spread = %v, want -3.5", snap.Spread)
	}
}

func TestSnapshotNoLines(t *testing.T) {
	b := testBuilder(&fakeOddsProvider{}, 15*time.Minute)

	_, err := b.Snapshot(context.Background(), testGame(), contracts.BetTotal)
	if err == nil {
		t.Fatal("expected precondition failure with zero lines")
	}
	if !contracts.IsKind(err, contracts.KindPreconditionFailed) {
		t.Errorf("error kind = %s, want %s", contracts.KindOf(err), contracts.KindPreconditionFailed)
	}
	if contracts.IsRetryable(err) {
		t.Error("zero reporting books is not retryable without new data")
	}
}

func TestSnapshotProviderError(t *testing.T) {
	cause := errors.New("odds api: 503")
	b := testBuilder(&fakeOddsProvider{err: cause}, 15*time.Minute)

	_, err := b.Snapshot(context.Background(), testGame(), contracts.BetTotal)
	if err == nil {
		t.Fatal("expected provider error")
	}
	if !contracts.IsKind(err, contracts.KindExternalProvider) {
		t.Errorf("error kind = %s, want %s", contracts.KindOf(err), contracts.KindExternalProvider)
	}
	if !contracts.IsRetryable(err) {
		t.Error("provider failures must stay retryable")
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
}

func TestSnapshotStaleFiltering(t *testing.T) {
	lines := []contracts.BookLine{
		{Book: "draftkings", Market: contracts.MarketTotal, Point: fptr(224.0), LastUpdate: captureTime.Add(-2 * time.Minute)},
		{Book: "fanduel", Market: contracts.MarketTotal, Point: fptr(230.0), LastUpdate: captureTime.Add(-40 * time.Minute)},
		{Book: "betmgm", Market: contracts.MarketSpread, Point: fptr(-3.0)},
	}
	b := testBuilder(&fakeOddsProvider{lines: lines}, 15*time.Minute)

	snap, err := b.Snapshot(context.Background(), testGame(), contracts.BetTotal)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	// The 40-minute-old quote and the timestampless quote are dropped
	if snap.TotalBooks != 1 {
		t.Fatalf("TotalBooks = %d, want 1", snap.TotalBooks)
	}
	if snap.Total != 224.0 {
		t.Errorf("Total = %v, want 224.0 (stale book excluded from the mean)", snap.Total)
	}
	if snap.BooksConsidered != 1 {
		t.Errorf("BooksConsidered = %d, want 1", snap.BooksConsidered)
	}
}

func TestSnapshotAllLinesStale(t *testing.T) {
	lines := []contracts.BookLine{
		{Book: "draftkings", Market: contracts.MarketTotal, Point: fptr(224.0), LastUpdate: captureTime.Add(-time.Hour)},
	}
	b := testBuilder(&fakeOddsProvider{lines: lines}, 15*time.Minute)

	_, err := b.Snapshot(context.Background(), testGame(), contracts.BetTotal)
	if err == nil {
		t.Fatal("expected precondition failure when every line is stale")
	}
	if !contracts.IsKind(err, contracts.KindPreconditionFailed) {
		t.Errorf("error kind = %s, want %s", contracts.KindOf(err), contracts.KindPreconditionFailed)
	}
}

func TestSnapshotStalenessGuardDisabled(t *testing.T) {
	lines := []contracts.BookLine{
		{Book: "draftkings", Market: contracts.MarketTotal, Point: fptr(224.0), LastUpdate: captureTime.Add(-time.Hour)},
	}
	b := testBuilder(&fakeOddsProvider{lines: lines}, 0)

	snap, err := b.Snapshot(context.Background(), testGame(), contracts.BetTotal)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.TotalBooks != 1 {
		t.Errorf("TotalBooks = %d, want 1 with the guard disabled", snap.TotalBooks)
	}
}
