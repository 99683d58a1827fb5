package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"slip-bot/api/internal/engine"
)

// BotAPI is the part of *tgbotapi.BotAPI the bot uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Channel shows engine messages in Telegram chats.
type Channel struct {
	Bot BotAPI
	Log *slog.Logger
}

func NewChannel(bot BotAPI, log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{Bot: bot, Log: log}
}

func (c *Channel) Send(_ context.Context, chatID int64, m engine.Message) (int, error) {
	msg := tgbotapi.NewMessage(chatID, clip(m.Text))
	if kb, ok := keyboard(m.Buttons, c.Log); ok {
		msg.ReplyMarkup = kb
	}
	if m.ForceReply {
		msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}
	}
	sent, err := c.Bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Edit replaces the text and keyboard of a message. A message without buttons
// loses its keyboard.
func (c *Channel) Edit(_ context.Context, chatID int64, messageID int, m engine.Message) error {
	if m.ForceReply {
		return errors.New("telegram: force reply cannot be edited in")
	}
	var edit tgbotapi.EditMessageTextConfig
	if kb, ok := keyboard(m.Buttons, c.Log); ok {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, clip(m.Text), kb)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, clip(m.Text))
	}
	_, err := c.Bot.Send(edit)
	if notModified(err) {
		return nil
	}
	return err
}

// notModified matches Telegram's answer to an edit that changes nothing.
func notModified(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}

func (c *Channel) text(chatID int64, text string) {
	if _, err := c.Bot.Send(tgbotapi.NewMessage(chatID, clip(text))); err != nil {
		c.Log.Warn("send failed", "chat_id", chatID, "err", err)
	}
}
