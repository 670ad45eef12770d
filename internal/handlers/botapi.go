package handlers

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// teleBot is the part of *tele.Bot used outside of an update context.
type teleBot interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Leave(chat tele.Recipient) error
}

// BotAPI adapts a telebot bot to the membership and admin interfaces.
type BotAPI struct {
	bot teleBot
}

// NewBotAPI wraps bot.
func NewBotAPI(bot teleBot) BotAPI {
	return BotAPI{bot: bot}
}

// Leave makes the bot leave chatID.
func (a BotAPI) Leave(_ context.Context, chatID int64) error {
	return a.bot.Leave(tele.ChatID(chatID))
}

// SendMarkdown sends text with Markdown parse mode to chatID.
func (a BotAPI) SendMarkdown(_ context.Context, chatID int64, text string) error {
	_, err := a.bot.Send(tele.ChatID(chatID), text, tele.ModeMarkdown)
	return err
}
