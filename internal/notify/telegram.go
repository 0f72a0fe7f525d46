package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
	"github.com/wonny/delphi/v2/backend/pkg/config"
	"github.com/wonny/delphi/v2/backend/pkg/logger"
)

// TelegramNotifier pushes pick alerts to a Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *logger.Logger
}

// NewTelegramNotifier creates a telegram notifier from config. The
// bot token is verified against the API once at startup so a bad
// token fails the boot, not the first pick.
func NewTelegramNotifier(cfg config.TelegramConfig, log *logger.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}

	log.WithField("bot", bot.Self.UserName).Info("Telegram notifier connected")

	return &TelegramNotifier{
		bot:    bot,
		chatID: cfg.ChatID,
		logger: log.WithComponent("telegram"),
	}, nil
}

// NotifyPick implements contracts.Notifier
func (n *TelegramNotifier) NotifyPick(ctx context.Context, pick *contracts.Pick, game *contracts.Game) error {
	msg := tgbotapi.NewMessage(n.chatID, formatPick(pick, game))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram alert for pick %s: %w", pick.PickID, err)
	}

	n.logger.WithFields(map[string]interface{}{
		"pick_id": pick.PickID,
		"chat_id": n.chatID,
	}).Info("Pick alert delivered")
	return nil
}
