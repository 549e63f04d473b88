package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"fivebyfive/internal/i18n"
	"fivebyfive/internal/tracker"
)

// t returns the translation in the configured language
func (b *Bot) t(key string) string {
	return i18n.T(key, b.config.Language)
}

// sendError sends error message to user and logs it
func (b *Bot) sendError(chatID int64, userMessage string, err error) {
	if err != nil {
		b.logger.Error("request failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.sendMessage(chatID, userMessage)
}

// sendMessage sends message to user with error logging
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendReplies sends tracker replies; the first one quotes the user's message
func (b *Bot) sendReplies(chatID int64, replyTo int, replies []tracker.Reply) {
	for i, r := range replies {
		msg := tgbotapi.NewMessage(chatID, r.Text)
		if r.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}
		if i == 0 && replyTo != 0 {
			msg.ReplyToMessageID = replyTo
		}
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}
