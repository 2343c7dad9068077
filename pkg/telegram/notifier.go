package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/cafeflow-backend/pkg/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts plain-text alerts to a single staff chat.
type Notifier struct {
	bot    Sender
	chatID int64
}

// New authenticates the bot token against the Telegram API.
func New(cfg config.TelegramConfig) (*Notifier, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, errors.New("telegram bot token is required")
	}
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return NewWithSender(api, cfg.ChatID)
}

func NewWithSender(bot Sender, chatID int64) (*Notifier, error) {
	if bot == nil {
		return nil, errors.New("telegram sender is required")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

// Notify sends text to the configured chat.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
