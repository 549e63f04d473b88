package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"fivebyfive/internal/export"
	"fivebyfive/internal/i18n"
	"fivebyfive/internal/tracker"
)

const (
	commandStart   = "start"
	commandAgenda  = "agenda"
	commandRecord  = "record"
	commandLast    = "last"
	commandCancel  = "cancel"
	commandHistory = "history"
	commandHelp    = "help"
)

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	var (
		replies []tracker.Reply
		err     error
	)

	// команды сравниваются без учёта регистра: /Agenda == /agenda
	command := strings.ToLower(message.Command())
	switch command {
	case commandStart:
		replies, err = b.core.Start(ctx, chatID)
	case commandRecord:
		replies, err = b.core.Record(ctx, chatID)
	case commandAgenda:
		replies, err = b.core.Agenda(ctx, chatID)
	case commandLast:
		replies, err = b.core.Last(ctx, chatID)
	case commandCancel:
		replies = b.core.Cancel(chatID)
	case commandHistory:
		b.handleHistory(ctx, message)
		return
	case commandHelp:
		replies = []tracker.Reply{{Text: b.t("help")}}
	default:
		replies = []tracker.Reply{{Text: b.t("unknown_command")}}
	}

	if err != nil {
		b.logger.Error("command failed",
			zap.String("command", command),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
	b.sendReplies(chatID, message.MessageID, replies)
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	replies, err := b.core.Input(ctx, chatID, message.Text)
	if err != nil {
		b.logger.Error("input failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.sendReplies(chatID, message.MessageID, replies)
}

// handleHistory отправляет всю историю xlsx-файлом
func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	entries, err := b.history.List(ctx)
	if err != nil {
		b.sendError(chatID, b.t("store_read_error"), err)
		return
	}
	if len(entries) == 0 {
		b.sendMessage(chatID, b.t("history_empty"))
		return
	}

	data, err := export.HistoryWorkbook(entries)
	if err != nil {
		b.sendError(chatID, b.t("store_read_error"), err)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  export.FileName,
		Bytes: data,
	})
	doc.Caption = i18n.Tf("history_caption", b.config.Language, len(entries))
	if _, err := b.api.Send(doc); err != nil {
		b.logger.Error("failed to send history", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
