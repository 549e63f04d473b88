package bot

import (
	"context"
	"fmt"

	"github.com/robfig/cron"
	"go.uber.org/zap"

	"fivebyfive/internal/tracker"
)

// StartAgendaReminder присылает план на сегодня по расписанию schedule.
// Формат robfig/cron с секундами: "0 0 7 * * 1,3,5" значит по понедельникам, средам и пятницам в 7:00.
// Возвращает функцию остановки.
func (b *Bot) StartAgendaReminder(ctx context.Context, schedule string) (func(), error) {
	c := cron.New()
	if err := c.AddFunc(schedule, func() { b.sendAgendaReminder(ctx) }); err != nil {
		return nil, fmt.Errorf("parsing agenda schedule %q: %w", schedule, err)
	}
	c.Start()

	b.logger.Info("agenda reminder scheduled", zap.String("schedule", schedule))
	return c.Stop, nil
}

// sendAgendaReminder отправляет план в разрешённый чат
func (b *Bot) sendAgendaReminder(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, b.config.RequestTimeout)
	defer cancel()

	chatID := b.config.AllowedChatID
	replies, err := b.core.Agenda(ctx, chatID)
	if err != nil {
		b.logger.Error("agenda reminder failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	replies = append([]tracker.Reply{{Text: b.t("agenda_reminder")}}, replies...)
	b.sendReplies(chatID, 0, replies)
}
