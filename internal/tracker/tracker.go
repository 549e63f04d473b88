package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fivebyfive/internal/i18n"
	"fivebyfive/internal/models"
	"fivebyfive/internal/training"
)

// HistoryStore: то, что трекеру нужно от журнала тренировок
type HistoryStore interface {
	Append(ctx context.Context, entry models.Entry) (models.Entry, error)
	Latest(ctx context.Context) (*models.Entry, error)
	SecondToLatest(ctx context.Context) (*models.Entry, error)
	Count(ctx context.Context) (int, error)
}

// Observer получает события трекера (метрики)
type Observer interface {
	EntryCommitted(t models.SessionType)
	ValidationFailed(step string)
	StoreFailed(op string)
}

type nopObserver struct{}

func (nopObserver) EntryCommitted(models.SessionType) {}
func (nopObserver) ValidationFailed(string)           {}
func (nopObserver) StoreFailed(string)                {}

// Reply: одно исходящее сообщение
type Reply struct {
	Text     string
	Markdown bool
}

// Tracker ведёт диалоги записи тренировок и отвечает на запросы плана.
// Ошибки хранилища возвращаются вызывающему; ответ пользователю при этом
// всё равно формируется и не содержит подробностей ошибки.
type Tracker struct {
	store    HistoryStore
	convs    *conversations
	lang     i18n.Language
	now      func() time.Time
	logger   *zap.Logger
	observer Observer
}

// Option настраивает Tracker
type Option func(*Tracker)

// WithLanguage задаёт язык ответов
func WithLanguage(lang i18n.Language) Option {
	return func(t *Tracker) { t.lang = lang }
}

// WithClock подменяет часы, которыми проставляется дата записи
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithObserver подключает получателя событий
func WithObserver(o Observer) Option {
	return func(t *Tracker) { t.observer = o }
}

// New создаёт трекер поверх хранилища
func New(store HistoryStore, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		convs:    newConversations(),
		lang:     i18n.DefaultLang,
		now:      time.Now,
		logger:   logger,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) reply(key string, args ...any) Reply {
	return Reply{Text: i18n.Tf(key, t.lang, args...)}
}

func (t *Tracker) replies(keys ...string) []Reply {
	out := make([]Reply, len(keys))
	for i, k := range keys {
		out[i] = t.reply(k)
	}
	return out
}

// storeFailed логирует ошибку хранилища и готовит нейтральный ответ
func (t *Tracker) storeFailed(op string, chatID int64, err error, key string) ([]Reply, error) {
	t.observer.StoreFailed(op)
	t.logger.Error("history store failed",
		zap.String("op", op),
		zap.Int64("chat_id", chatID),
		zap.Error(err))
	return t.replies(key), fmt.Errorf("%s: %w", op, err)
}

// Start запускает ввод стартовых весов. Если в истории только A, просит B;
// если обе стартовые записи есть, ничего не начинает.
func (t *Tracker) Start(ctx context.Context, chatID int64) ([]Reply, error) {
	release := t.convs.acquire(chatID)
	defer release()

	n, err := t.store.Count(ctx)
	if err != nil {
		return t.storeFailed("count", chatID, err, "store_read_error")
	}

	switch n {
	case 0:
		t.startInit(chatID, models.SessionA)
		return t.replies("start_welcome", "init_prompt_a"), nil
	case 1:
		// инициализацию прервали после A: продолжаем с B
		latest, err := t.store.Latest(ctx)
		if err != nil {
			return t.storeFailed("latest", chatID, err, "store_read_error")
		}
		if latest != nil && latest.Type == models.SessionA {
			t.startInit(chatID, models.SessionB)
			return t.replies("init_resume_prompt_b"), nil
		}
	}
	return []Reply{t.reply("init_already_done", n)}, nil
}

// startInit ставит диалог на ввод стартовых весов для sessionType
func (t *Tracker) startInit(chatID int64, sessionType models.SessionType) {
	s := awaitingBaseValues{id: uuid.New(), flow: flowInit, sessionType: sessionType}
	t.convs.set(chatID, s)
	t.logger.Info("flow started",
		zap.Int64("chat_id", chatID),
		zap.String("flow", s.flow.String()),
		zap.String("flow_id", s.id.String()),
		zap.String("session_type", string(sessionType)))
}

// Record запускает запись сегодняшней тренировки.
// Тип сессии берётся из предпоследней записи, потому что последняя это только что
// выполненный другой тип, вместе с прибавками на следующую неделю.
func (t *Tracker) Record(ctx context.Context, chatID int64) ([]Reply, error) {
	release := t.convs.acquire(chatID)
	defer release()

	today, err := t.todaySessionType(ctx, chatID)
	if err != nil {
		return t.storeFailed("second_to_latest", chatID, err, "store_read_error")
	}
	if today == "" {
		return t.replies("no_history"), nil
	}

	s := awaitingBaseValues{id: uuid.New(), flow: flowRecord, sessionType: today}
	t.convs.set(chatID, s)
	t.logger.Info("flow started",
		zap.Int64("chat_id", chatID),
		zap.String("flow", s.flow.String()),
		zap.String("flow_id", s.id.String()),
		zap.String("session_type", string(today)))

	labels := training.Labels(today)
	return []Reply{t.reply("record_prompt", today, labels[0], labels[1], labels[2])}, nil
}

// todaySessionType возвращает тип сегодняшней сессии или "" при нехватке истории.
// Если две последние записи одного типа, чередование нарушено: пишем предупреждение
// и всё равно доверяем предпоследней записи.
func (t *Tracker) todaySessionType(ctx context.Context, chatID int64) (models.SessionType, error) {
	prev, err := t.store.SecondToLatest(ctx)
	if err != nil || prev == nil {
		return "", err
	}

	latest, err := t.store.Latest(ctx)
	if err != nil {
		return "", err
	}
	if latest != nil && latest.Type.Next() != prev.Type {
		t.logger.Warn("history does not alternate A/B",
			zap.Int64("chat_id", chatID),
			zap.Int64("latest_id", latest.ID),
			zap.String("latest_type", string(latest.Type)),
			zap.Int64("previous_id", prev.ID),
			zap.String("previous_type", string(prev.Type)))
	}
	return prev.Type, nil
}

// Agenda показывает план на сегодня по предпоследней записи
func (t *Tracker) Agenda(ctx context.Context, chatID int64) ([]Reply, error) {
	prev, err := t.store.SecondToLatest(ctx)
	if err != nil {
		return t.storeFailed("second_to_latest", chatID, err, "store_read_error")
	}
	if prev == nil {
		return t.replies("no_history"), nil
	}

	session := training.ProjectNextSession(*prev)
	return []Reply{{Text: session.Text(), Markdown: true}}, nil
}

// Last показывает последнюю записанную тренировку
func (t *Tracker) Last(ctx context.Context, chatID int64) ([]Reply, error) {
	latest, err := t.store.Latest(ctx)
	if err != nil {
		return t.storeFailed("latest", chatID, err, "store_read_error")
	}
	if latest == nil {
		return t.replies("history_empty"), nil
	}

	labels := training.Labels(latest.Type)
	loads := latest.Loads()
	additions := latest.Additions()

	lines := []string{i18n.Tf("last_entry_header", t.lang, latest.Type, latest.Date.Format("02.01.2006"))}
	for i := range labels {
		lines = append(lines, i18n.Tf("last_entry_line", t.lang,
			i+1, labels[i], training.FormatWeight(loads[i]), signed(additions[i])))
	}
	return []Reply{{Text: strings.Join(lines, "\n")}}, nil
}

// Cancel сбрасывает текущий диалог
func (t *Tracker) Cancel(chatID int64) []Reply {
	release := t.convs.acquire(chatID)
	defer release()

	if t.convs.remove(chatID) {
		t.logger.Info("flow cancelled", zap.Int64("chat_id", chatID))
		return t.replies("cancelled")
	}
	return t.replies("nothing_to_cancel")
}

// Input обрабатывает обычное (не командное) сообщение
func (t *Tracker) Input(ctx context.Context, chatID int64, text string) ([]Reply, error) {
	release := t.convs.acquire(chatID)
	defer release()

	current, ok := t.convs.get(chatID)
	if !ok {
		return t.replies("not_started"), nil
	}

	values, err := training.ParseTriple(text)
	if err != nil {
		var perr training.ParseError
		if !errors.As(err, &perr) {
			return nil, err
		}
		t.observer.ValidationFailed(current.stepName())
		t.logger.Debug("input rejected",
			zap.Int64("chat_id", chatID),
			zap.String("flow_id", current.flowID().String()),
			zap.String("step", current.stepName()),
			zap.String("field", perr.Field))
		return []Reply{t.reply("input_error", perr.Message)}, nil
	}

	switch s := current.(type) {
	case awaitingBaseValues:
		return t.handleBaseValues(ctx, chatID, s, values)
	case awaitingAdditionValues:
		return t.handleAdditionValues(ctx, chatID, s, values)
	default:
		return nil, fmt.Errorf("unexpected conversation state %T", current)
	}
}

func (t *Tracker) handleBaseValues(ctx context.Context, chatID int64, s awaitingBaseValues, values [3]float64) ([]Reply, error) {
	draft := models.Draft{Type: s.sessionType, Loads: values}

	if s.flow == flowRecord {
		t.convs.set(chatID, awaitingAdditionValues{id: s.id, draft: draft})
		return t.replies("record_prompt_additions"), nil
	}

	// стартовые веса сохраняются сразу, прибавки нулевые
	if _, err := t.commit(ctx, chatID, s.id, draft); err != nil {
		return t.storeFailed("append", chatID, err, "store_write_error")
	}

	if s.sessionType == models.SessionA {
		t.convs.set(chatID, awaitingBaseValues{id: s.id, flow: flowInit, sessionType: models.SessionB})
		return t.replies("init_saved_prompt_b"), nil
	}

	t.convs.remove(chatID)
	return t.replies("init_done"), nil
}

func (t *Tracker) handleAdditionValues(ctx context.Context, chatID int64, s awaitingAdditionValues, values [3]float64) ([]Reply, error) {
	draft := s.draft
	draft.Additions = values

	if _, err := t.commit(ctx, chatID, s.id, draft); err != nil {
		// черновик остаётся, можно отправить прибавки ещё раз
		return t.storeFailed("append", chatID, err, "store_write_error")
	}

	t.convs.remove(chatID)
	return t.replies("record_saved"), nil
}

// commit проставляет дату и дописывает запись в историю
func (t *Tracker) commit(ctx context.Context, chatID int64, flowID uuid.UUID, draft models.Draft) (models.Entry, error) {
	saved, err := t.store.Append(ctx, draft.Entry(t.now()))
	if err != nil {
		return models.Entry{}, err
	}

	t.observer.EntryCommitted(saved.Type)
	t.logger.Info("entry committed",
		zap.Int64("chat_id", chatID),
		zap.String("flow_id", flowID.String()),
		zap.Int64("entry_id", saved.ID),
		zap.String("session_type", string(saved.Type)))
	return saved, nil
}

// signed печатает прибавку со знаком: +2.5, -10, +0
func signed(v float64) string {
	if v < 0 {
		return training.FormatWeight(v)
	}
	return "+" + training.FormatWeight(v)
}
