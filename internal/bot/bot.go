package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"fivebyfive/internal/i18n"
	"fivebyfive/internal/models"
	"fivebyfive/internal/tracker"
)

// API: часть tgbotapi.BotAPI, которой пользуется бот
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Core: трекер тренировок
type Core interface {
	Start(ctx context.Context, chatID int64) ([]tracker.Reply, error)
	Record(ctx context.Context, chatID int64) ([]tracker.Reply, error)
	Agenda(ctx context.Context, chatID int64) ([]tracker.Reply, error)
	Last(ctx context.Context, chatID int64) ([]tracker.Reply, error)
	Cancel(chatID int64) []tracker.Reply
	Input(ctx context.Context, chatID int64, text string) ([]tracker.Reply, error)
}

// HistoryLister отдаёт всю историю для выгрузки
type HistoryLister interface {
	List(ctx context.Context) ([]models.Entry, error)
}

// UpdateCounter считает входящие обновления
type UpdateCounter interface {
	Update(kind string)
}

type nopCounter struct{}

func (nopCounter) Update(string) {}

// Config: настройки транспорта
type Config struct {
	AllowedChatID int64
	Language      i18n.Language

	// RequestTimeout ограничивает обработку одного сообщения
	RequestTimeout time.Duration
}

// Bot представляет Telegram бота.
// Обновления обрабатываются по одному в порядке поступления.
type Bot struct {
	api     API
	core    Core
	history HistoryLister
	config  Config
	logger  *zap.Logger
	counter UpdateCounter
}

// New создаёт новый экземпляр бота
func New(api API, core Core, history HistoryLister, cfg Config, logger *zap.Logger) *Bot {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Bot{
		api:     api,
		core:    core,
		history: history,
		config:  cfg,
		logger:  logger,
		counter: nopCounter{},
	}
}

// WithUpdateCounter подключает счётчик обновлений
func (b *Bot) WithUpdateCounter(c UpdateCounter) *Bot {
	b.counter = c
	return b
}

// Start запускает бота и блокируется до отмены ctx
func (b *Bot) Start(ctx context.Context) error {
	updates := b.initUpdatesChannel()
	defer b.api.StopReceivingUpdates()

	b.logger.Info("bot started", zap.Int64("allowed_chat_id", b.config.AllowedChatID))
	b.handleUpdates(ctx, updates)
	return nil
}

func (b *Bot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	if chatID != b.config.AllowedChatID {
		b.counter.Update("rejected")
		b.logger.Debug("message from unknown chat ignored", zap.Int64("chat_id", chatID))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.RequestTimeout)
	defer cancel()

	if update.Message.IsCommand() {
		b.counter.Update("command")
		b.handleCommand(ctx, update.Message)
		return
	}

	b.counter.Update("text")
	b.handleMessage(ctx, update.Message)
}

func (b *Bot) initUpdatesChannel() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	return b.api.GetUpdatesChan(u)
}
