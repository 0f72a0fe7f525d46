// Package notify announces finalized picks. Implementations satisfy
// contracts.Notifier; delivery failure is logged by the caller and
// never fails a run.
package notify

import (
	"context"
	"fmt"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// ConsoleNotifier logs picks through the structured logger. The
// default sink when Telegram is disabled.
type ConsoleNotifier struct {
	logger *logger.Logger
}

// NewConsoleNotifier creates a console notifier
func NewConsoleNotifier(log *logger.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: log.WithComponent("notify")}
}

// NotifyPick implements contracts.Notifier
func (n *ConsoleNotifier) NotifyPick(ctx context.Context, pick *contracts.Pick, game *contracts.Game) error {
	n.logger.WithFields(map[string]interface{}{
		"pick_id":    pick.PickID,
		"run_id":     pick.RunID,
		"bet_type":   pick.BetType,
		"selection":  pick.Selection,
		"units":      pick.Units,
		"confidence": pick.Confidence,
		"line":       pick.Line(),
	}).Info("🎯 Pick finalized")
	return nil
}

// formatPick renders the alert text shared by the chat notifiers.
func formatPick(pick *contracts.Pick, game *contracts.Game) string {
	matchup := pick.GameID
	if game != nil {
		matchup = fmt.Sprintf("%s @ %s", game.AwayTeam, game.HomeTeam)
	}
	return fmt.Sprintf(
		"🎯 %s\n%s %s %.1f\n%d unit(s) at confidence %.2f\nlocked %s (%d books)",
		matchup,
		pick.BetType, pick.Selection, pick.Line(),
		pick.Units, pick.Confidence,
		pick.LockedOdds.CapturedAt.Format("2006-01-02 15:04 MST"),
		pick.LockedOdds.BooksConsidered,
	)
}

// Multi fans one pick out to several notifiers, returning the first
// delivery error after trying all of them.
type Multi []contracts.Notifier

// NotifyPick implements contracts.Notifier
func (m Multi) NotifyPick(ctx context.Context, pick *contracts.Pick, game *contracts.Game) error {
	var firstErr error
	for _, n := range m {
		if err := n.NotifyPick(ctx, pick, game); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
