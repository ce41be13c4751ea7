// Package notify delivers alert messages to subscribers over Telegram.
package notify

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the slice of the Telegram client we use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends alert messages to individual chats.
type Telegram struct {
	bot    sender
	logger *slog.Logger
}

// NewTelegram creates a Telegram notifier over a connected bot client.
func NewTelegram(bot *tgbotapi.BotAPI, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{bot: bot, logger: logger}
}

// Send delivers one alert to a chat, attaching a link button when linkURL
// is non-empty. Delivery failures are returned for the caller to log; a
// failed send to one subscriber never affects another.
func (t *Telegram) Send(userID int64, text, linkURL string) error {
	msg := tgbotapi.NewMessage(userID, text)
	if linkURL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("🔗 Open market", linkURL),
			),
		)
	}
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", userID, err)
	}
	return nil
}
