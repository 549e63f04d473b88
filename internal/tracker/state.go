package tracker

import (
	"sync"

	"github.com/google/uuid"

	"fivebyfive/internal/models"
)

type flowKind int

const (
	// flowRecord обычная запись тренировки (веса, затем прибавки)
	flowRecord flowKind = iota
	// flowInit вводит стартовые веса, сначала A, затем B, с нулевыми прибавками
	flowInit
)

func (f flowKind) String() string {
	if f == flowInit {
		return "init"
	}
	return "record"
}

// state: шаг диалога. Реализации перечислены ниже, других нет.
type state interface {
	flowID() uuid.UUID
	stepName() string
}

// awaitingBaseValues ждёт три рабочих веса для сессии sessionType
type awaitingBaseValues struct {
	id          uuid.UUID
	flow        flowKind
	sessionType models.SessionType
}

func (s awaitingBaseValues) flowID() uuid.UUID { return s.id }
func (s awaitingBaseValues) stepName() string  { return "base" }

// awaitingAdditionValues ждёт три прибавки; веса уже в черновике
type awaitingAdditionValues struct {
	id    uuid.UUID
	draft models.Draft
}

func (s awaitingAdditionValues) flowID() uuid.UUID { return s.id }
func (s awaitingAdditionValues) stepName() string  { return "additions" }

// conversations хранит состояние диалогов по chat id.
// Шаг одного диалога выполняется под его собственным мьютексом целиком,
// включая запись в хранилище.
type conversations struct {
	mu     sync.Mutex
	locks  map[int64]*sync.Mutex
	states map[int64]state
}

func newConversations() *conversations {
	return &conversations{
		locks:  make(map[int64]*sync.Mutex),
		states: make(map[int64]state),
	}
}

// acquire блокирует диалог chatID и возвращает функцию разблокировки
func (c *conversations) acquire(chatID int64) func() {
	c.mu.Lock()
	l, ok := c.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[chatID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (c *conversations) get(chatID int64) (state, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[chatID]
	return s, ok
}

func (c *conversations) set(chatID int64, s state) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[chatID] = s
}

func (c *conversations) remove(chatID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.states[chatID]
	delete(c.states, chatID)
	return ok
}
