package services

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"Mediarr/config"
)

// TelegramMessenger posts notifications into the group's bot topic. It is
// fire-and-forget: callers treat delivery failures as logged noise.
type TelegramMessenger struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	topicID int
	silent  bool
}

func NewTelegramMessenger(cfg *config.Config) (*TelegramMessenger, error) {
	if cfg.BotToken == "" || cfg.GroupChatID == 0 {
		return nil, ErrNotConfigured
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	slog.Info("Telegram messenger connected", "bot", bot.Self.UserName)
	return &TelegramMessenger{
		bot:     bot,
		chatID:  cfg.GroupChatID,
		topicID: cfg.BotTopicID,
		silent:  cfg.SilentNotifications,
	}, nil
}

// Notify mentions one user in the group topic. There are no private chats:
// the whole group shares one server, messages stay in the shared topic.
func (m *TelegramMessenger) Notify(_ context.Context, _ int64, displayName, message string) error {
	text := message
	if displayName != "" {
		text = "@" + displayName + " " + message
	}
	return m.send(text)
}

// Broadcast posts to the group topic without mentioning anyone.
func (m *TelegramMessenger) Broadcast(_ context.Context, message string) error {
	return m.send(message)
}

func (m *TelegramMessenger) send(text string) error {
	msg := tgbotapi.NewMessage(m.chatID, text)
	msg.DisableNotification = m.silent
	if m.topicID != 0 {
		// Forum topics accept the topic id as a reply target, which routes
		// the message into the right thread.
		msg.ReplyToMessageID = m.topicID
	}
	if _, err := m.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	return nil
}
