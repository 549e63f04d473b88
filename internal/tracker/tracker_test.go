package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fivebyfive/internal/i18n"
	"fivebyfive/internal/models"
	"fivebyfive/internal/repository"
)

const chatID int64 = 42

// memoryStore: журнал в памяти с возможностью сломать запись
type memoryStore struct {
	mu        sync.Mutex
	entries   []models.Entry
	failWrite bool
	failRead  bool
}

var errBroken = fmt.Errorf("%w: connection refused", repository.ErrStoreUnavailable)

func (s *memoryStore) Append(ctx context.Context, e models.Entry) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite {
		return models.Entry{}, errBroken
	}
	e.ID = int64(len(s.entries) + 1)
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *memoryStore) nth(offset int) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRead {
		return nil, errBroken
	}
	i := len(s.entries) - 1 - offset
	if i < 0 {
		return nil, nil
	}
	e := s.entries[i]
	return &e, nil
}

func (s *memoryStore) Latest(ctx context.Context) (*models.Entry, error) { return s.nth(0) }

func (s *memoryStore) SecondToLatest(ctx context.Context) (*models.Entry, error) { return s.nth(1) }

func (s *memoryStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRead {
		return 0, errBroken
	}
	return len(s.entries), nil
}

type countingObserver struct {
	committed   int
	validations map[string]int
	storeErrors map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{validations: map[string]int{}, storeErrors: map[string]int{}}
}

func (o *countingObserver) EntryCommitted(models.SessionType) { o.committed++ }
func (o *countingObserver) ValidationFailed(step string)      { o.validations[step]++ }
func (o *countingObserver) StoreFailed(op string)             { o.storeErrors[op]++ }

var fixedNow = time.Date(2024, 6, 3, 19, 0, 0, 0, time.UTC)

func newTestTracker(store *memoryStore, opts ...Option) *Tracker {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(store, zap.NewNop(), opts...)
}

func texts(replies []Reply) []string {
	out := make([]string, len(replies))
	for i, r := range replies {
		out[i] = r.Text
	}
	return out
}

func en(key string, args ...any) string {
	return i18n.Tf(key, i18n.LangEnglish, args...)
}

// initialize проходит /start со значениями из примера
func initialize(t *testing.T, tr *Tracker) {
	t.Helper()
	ctx := context.Background()

	_, err := tr.Start(ctx, chatID)
	require.NoError(t, err)
	_, err = tr.Input(ctx, chatID, "100 60 80")
	require.NoError(t, err)
	_, err = tr.Input(ctx, chatID, "100 50 140")
	require.NoError(t, err)
}

func TestStart_InitializationScenario(t *testing.T) {
	store := &memoryStore{}
	tr := newTestTracker(store)
	ctx := context.Background()

	replies, err := tr.Start(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, []string{en("start_welcome"), en("init_prompt_a")}, texts(replies))

	replies, err = tr.Input(ctx, chatID, "100 60 80")
	require.NoError(t, err)
	assert.Equal(t, []string{en("init_saved_prompt_b")}, texts(replies))

	replies, err = tr.Input(ctx, chatID, "100 50 140")
	require.NoError(t, err)
	assert.Equal(t, []string{en("init_done")}, texts(replies))

	require.Len(t, store.entries, 2)
	assert.Equal(t, models.Entry{
		ID: 1, Date: fixedNow, Type: models.SessionA, Ex1: 100, Ex2: 60, Ex3: 80,
	}, store.entries[0])
	assert.Equal(t, models.Entry{
		ID: 2, Date: fixedNow, Type: models.SessionB, Ex1: 100, Ex2: 50, Ex3: 140,
	}, store.entries[1])

	_, pending := tr.convs.get(chatID)
	assert.False(t, pending, "state must be removed after the B baseline")
}

func TestStart_AlreadyInitialized(t *testing.T) {
	store := &memoryStore{}
	tr := newTestTracker(store)
	initialize(t, tr)

	replies, err := tr.Start(context.Background(), chatID)
	require.NoError(t, err)
	assert.Equal(t, []string{en("init_already_done", 2)}, texts(replies))

	_, pending := tr.convs.get(chatID)
	assert.False(t, pending)
	assert.Len(t, store.entries, 2)
}

func TestStart_ResumesAfterInterruptedInit(t *testing.T) {
	tests := []struct {
		name      string
		interrupt func(tr *Tracker) *Tracker
	}{
		{"cancel", func(tr *Tracker) *Tracker {
			tr.Cancel(chatID)
			return tr
		}},
		{"restart", func(tr *Tracker) *Tracker {
			// состояние диалогов живёт только в памяти
			return newTestTracker(tr.store.(*memoryStore))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{}
			tr := newTestTracker(store)
			ctx := context.Background()

			_, err := tr.Start(ctx, chatID)
			require.NoError(t, err)
			_, err = tr.Input(ctx, chatID, "100 60 80")
			require.NoError(t, err)
			require.Len(t, store.entries, 1)

			tr = tt.interrupt(tr)

			replies, err := tr.Start(ctx, chatID)
			require.NoError(t, err)
			assert.Equal(t, []string{en("init_resume_prompt_b")}, texts(replies))

			replies, err = tr.Input(ctx, chatID, "100 50 140")
			require.NoError(t, err)
			assert.Equal(t, []string{en("init_done")}, texts(replies))

			require.Len(t, store.entries, 2)
			assert.Equal(t, models.SessionA, store.entries[0].Type)
			assert.Equal(t, models.SessionB, store.entries[1].Type)
			assert.Equal(t, [3]float64{100, 50, 140}, store.entries[1].Loads())

			replies, err = tr.Agenda(ctx, chatID)
			require.NoError(t, err)
			require.Len(t, replies, 1)
			assert.Contains(t, replies[0].Text, "Today's session is A")
		})
	}
}

func TestStart_SingleBEntryNotResumed(t *testing.T) {
	store := &memoryStore{entries: []models.Entry{
		{ID: 1, Date: fixedNow, Type: models.SessionB, Ex1: 100, Ex2: 50, Ex3: 140},
	}}
	tr := newTestTracker(store)

	replies, err := tr.Start(context.Background(), chatID)
	require.NoError(t, err)
	assert.Equal(t, []string{en("init_already_done", 1)}, texts(replies))

	_, pending := tr.convs.get(chatID)
	assert.False(t, pending)
}

func TestAgenda_AfterInitialization(t *testing.T) {
	tr := newTestTracker(&memoryStore{})
	initialize(t, tr)

	replies, err := tr.Agenda(context.Background(), chatID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Markdown)
	assert.Equal(t, "Today's session is A\n"+
		"1. Squat 5x5: 100\n"+
		"2. Bench Press 5x5: 60\n"+
		"3. Barbell Row 5x5: 80\n"+
		"`100 60 80`", replies[0].Text)
}

func TestAgenda_SecondEntryAsSecondToLatest(t *testing.T) {
	store := &memoryStore{}
	tr := newTestTracker(store)
	initialize(t, tr)
	// третья запись делает B-базу предпоследней
	_, err := store.Append(context.Background(), models.Entry{Type: models.SessionA, Ex1: 100, Ex2: 60, Ex3: 80})
	require.NoError(t, err)

	replies, err := tr.Agenda(context.Background(), chatID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "Today's session is B\n"+
		"1. Squat 5x5: 100\n"+
		"2. Overhead Press 5x5: 50\n"+
		"3. Deadlift 1x5: 140\n"+
		"`100 50 140`", replies[0].Text)
}

func TestAgenda_InsufficientHistory(t *testing.T) {
	for _, n := range []int{0, 1} {
		t.Run(fmt.Sprintf("%d entries", n), func(t *testing.T) {
			store := &memoryStore{}
			for i := 0; i < n; i++ {
				store.entries = append(store.entries, models.Entry{ID: int64(i + 1), Type: models.SessionA})
			}
			tr := newTestTracker(store)

			replies, err := tr.Agenda(context.Background(), chatID)
			require.NoError(t, err)
			assert.Equal(t, []string{en("no_history")}, texts(replies))
		})
	}
}

func TestRecord_Scenario(t *testing.T) {
	store := &memoryStore{}
	obs := newCountingObserver()
	tr := newTestTracker(store, WithObserver(obs))
	initialize(t, tr)
	ctx := context.Background()

	replies, err := tr.Record(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, []string{en("record_prompt", "A", "Squat 5x5", "Bench Press 5x5", "Barbell Row 5x5")}, texts(replies))

	replies, err = tr.Input(ctx, chatID, "102 62 82")
	require.NoError(t, err)
	assert.Equal(t, []string{en("record_prompt_additions")}, texts(replies))
	assert.Len(t, store.entries, 2, "nothing is written before the additions step")

	replies, err = tr.Input(ctx, chatID, "2.5 2.5 5")
	require.NoError(t, err)
	assert.Equal(t, []string{en("record_saved")}, texts(replies))

	require.Len(t, store.entries, 3)
	assert.Equal(t, models.Entry{
		ID:          3,
		Date:        fixedNow,
		Type:        models.SessionA,
		Ex1:         102,
		Ex1Addition: 2.5,
		Ex2:         62,
		Ex2Addition: 2.5,
		Ex3:         82,
		Ex3Addition: 5,
	}, store.entries[2])
	assert.Equal(t, 3, obs.committed)

	_, pending := tr.convs.get(chatID)
	assert.False(t, pending)

	// план по новой записи, когда она станет предпоследней
	_, err = store.Append(ctx, models.Entry{Type: models.SessionB, Ex1: 102, Ex2: 52, Ex3: 145})
	require.NoError(t, err)
	replies, err = tr.Agenda(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "`104.5 64.5 87`")
}

func TestRecord_NoHistory(t *testing.T) {
	tr := newTestTracker(&memoryStore{})

	replies, err := tr.Record(context.Background(), chatID)
	require.NoError(t, err)
	assert.Equal(t, []string{en("no_history")}, texts(replies))

	_, pending := tr.convs.get(chatID)
	assert.False(t, pending)
}

func TestRecord_RestartOverwritesState(t *testing.T) {
	store := &memoryStore{}
	tr := newTestTracker(store)
	initialize(t, tr)
	ctx := context.Background()

	_, err := tr.Record(ctx, chatID)
	require.NoError(t, err)
	_, err = tr.Input(ctx, chatID, "102 62 82")
	require.NoError(t, err)

	_, err = tr.Record(ctx, chatID)
	require.NoError(t, err)
	s, ok := tr.convs.get(chatID)
	require.True(t, ok)
	assert.IsType(t, awaitingBaseValues{}, s)
}

func TestInput_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"two tokens", "102 62"},
		{"four tokens", "102 62 82 1"},
		{"word", "102 sixty 82"},
		{"empty token", "102  82"},
		{"empty message", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{}
			obs := newCountingObserver()
			tr := newTestTracker(store, WithObserver(obs))
			initialize(t, tr)
			ctx := context.Background()

			_, err := tr.Record(ctx, chatID)
			require.NoError(t, err)
			before, _ := tr.convs.get(chatID)

			replies, err := tr.Input(ctx, chatID, tt.input)
			require.NoError(t, err)
			require.Len(t, replies, 1)
			assert.Contains(t, replies[0].Text, "Error: ")

			after, ok := tr.convs.get(chatID)
			require.True(t, ok)
			assert.Equal(t, before, after, "step and draft must not change")
			assert.Len(t, store.entries, 2)
			assert.Equal(t, 1, obs.validations["base"])
		})
	}
}

func TestInput_RejectsBadAdditionsKeepsDraft(t *testing.T) {
	store := &memoryStore{}
	tr := newTestTracker(store)
	initialize(t, tr)
	ctx := context.Background()

	_, err := tr.Record(ctx, chatID)
	require.NoError(t, err)
	_, err = tr.Input(ctx, chatID, "102 62 82")
	require.NoError(t, err)

	replies, err := tr.Input(ctx, chatID, "2.5 2.5")
	require.NoError(t, err)
	assert.Contains(t, replies[0].Text, "got 2")

	s, ok := tr.convs.get(chatID)
	require.True(t, ok)
	additions, isAdditions := s.(awaitingAdditionValues)
	require.True(t, isAdditions)
	assert.Equal(t, [3]float64{102, 62, 82}, additions.draft.Loads)
	assert.Len(t, store.entries, 2)
}

func TestInput_WithoutFlow(t *testing.T) {
	tr := newTestTracker(&memoryStore{})

	replies, err := tr.Input(context.Background(), chatID, "100 60 80")
	require.NoError(t, err)
	assert.Equal(t, []string{en("not_started")}, texts(replies))
}

func TestInput_StoreFailurePreservesDraft(t *testing.T) {
	store := &memoryStore{}
	obs := newCountingObserver()
	tr := newTestTracker(store, WithObserver(obs))
	initialize(t, tr)
	ctx := context.Background()

	_, err := tr.Record(ctx, chatID)
	require.NoError(t, err)
	_, err = tr.Input(ctx, chatID, "102 62 82")
	require.NoError(t, err)

	store.failWrite = true
	replies, err := tr.Input(ctx, chatID, "2.5 2.5 5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrStoreUnavailable))
	assert.Equal(t, []string{en("store_write_error")}, texts(replies))
	assert.NotContains(t, replies[0].Text, "connection refused")
	assert.Equal(t, 1, obs.storeErrors["append"])

	s, ok := tr.convs.get(chatID)
	require.True(t, ok)
	assert.IsType(t, awaitingAdditionValues{}, s)

	// повтор после восстановления
	store.failWrite = false
	replies, err = tr.Input(ctx, chatID, "2.5 2.5 5")
	require.NoError(t, err)
	assert.Equal(t, []string{en("record_saved")}, texts(replies))
	require.Len(t, store.entries, 3)
	assert.Equal(t, [3]float64{102, 62, 82}, store.entries[2].Loads())
}

func TestStart_StoreFailureDuringInit(t *testing.T) {
	store := &memoryStore{}
	tr := newTestTracker(store)
	ctx := context.Background()

	_, err := tr.Start(ctx, chatID)
	require.NoError(t, err)

	store.failWrite = true
	_, err = tr.Input(ctx, chatID, "100 60 80")
	require.ErrorIs(t, err, repository.ErrStoreUnavailable)

	s, ok := tr.convs.get(chatID)
	require.True(t, ok)
	base := s.(awaitingBaseValues)
	assert.Equal(t, models.SessionA, base.sessionType, "step A must not be skipped")
	assert.Empty(t, store.entries)
}

func TestReadFailures(t *testing.T) {
	store := &memoryStore{failRead: true}
	tr := newTestTracker(store)
	ctx := context.Background()

	for name, call := range map[string]func() ([]Reply, error){
		"start":  func() ([]Reply, error) { return tr.Start(ctx, chatID) },
		"record": func() ([]Reply, error) { return tr.Record(ctx, chatID) },
		"agenda": func() ([]Reply, error) { return tr.Agenda(ctx, chatID) },
		"last":   func() ([]Reply, error) { return tr.Last(ctx, chatID) },
	} {
		t.Run(name, func(t *testing.T) {
			replies, err := call()
			assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
			assert.Equal(t, []string{en("store_read_error")}, texts(replies))
		})
	}
}

func TestCancel(t *testing.T) {
	store := &memoryStore{}
	tr := newTestTracker(store)
	initialize(t, tr)
	ctx := context.Background()

	assert.Equal(t, []string{en("nothing_to_cancel")}, texts(tr.Cancel(chatID)))

	_, err := tr.Record(ctx, chatID)
	require.NoError(t, err)
	_, err = tr.Input(ctx, chatID, "102 62 82")
	require.NoError(t, err)

	assert.Equal(t, []string{en("cancelled")}, texts(tr.Cancel(chatID)))
	_, pending := tr.convs.get(chatID)
	assert.False(t, pending)
	assert.Len(t, store.entries, 2)
}

func TestLast(t *testing.T) {
	store := &memoryStore{}
	tr := newTestTracker(store)
	ctx := context.Background()

	replies, err := tr.Last(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, []string{en("history_empty")}, texts(replies))

	_, err = store.Append(ctx, models.Entry{
		Date:        fixedNow,
		Type:        models.SessionB,
		Ex1:         100,
		Ex1Addition: 2.5,
		Ex2:         50,
		Ex3:         140,
		Ex3Addition: -10,
	})
	require.NoError(t, err)

	replies, err = tr.Last(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "Last recorded session is B (03.06.2024)\n"+
		"1. Squat 5x5: 100 (next time +2.5)\n"+
		"2. Overhead Press 5x5: 50 (next time +0)\n"+
		"3. Deadlift 1x5: 140 (next time -10)", replies[0].Text)
}

func TestRussianReplies(t *testing.T) {
	tr := newTestTracker(&memoryStore{}, WithLanguage(i18n.LangRussian))

	replies, err := tr.Input(context.Background(), chatID, "1 2 3")
	require.NoError(t, err)
	assert.Equal(t, []string{i18n.T("not_started", i18n.LangRussian)}, texts(replies))
}

func TestInput_ConcurrentSameConversation(t *testing.T) {
	store := &memoryStore{}
	tr := newTestTracker(store)
	initialize(t, tr)
	ctx := context.Background()

	_, err := tr.Record(ctx, chatID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.Input(ctx, chatID, "5 5 5")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// веса и прибавки дают ровно одну новую запись
	require.Len(t, store.entries, 3)
	assert.Equal(t, [3]float64{5, 5, 5}, store.entries[2].Loads())
	assert.Equal(t, [3]float64{5, 5, 5}, store.entries[2].Additions())
	_, pending := tr.convs.get(chatID)
	assert.False(t, pending)
}
