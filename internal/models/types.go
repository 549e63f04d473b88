package models

import (
	"fmt"
	"strings"
	"time"
)

// SessionType: один из двух чередующихся шаблонов тренировки
type SessionType string

const (
	SessionA SessionType = "A"
	SessionB SessionType = "B"
)

// Valid проверяет, что тип сессии известен
func (t SessionType) Valid() bool {
	return t == SessionA || t == SessionB
}

// Next возвращает тип сессии, который идёт после t
func (t SessionType) Next() SessionType {
	if t == SessionA {
		return SessionB
	}
	return SessionA
}

// ParseSessionType преобразует строку из БД в SessionType
func ParseSessionType(s string) (SessionType, error) {
	t := SessionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown session type %q", s)
	}
	return t, nil
}

// Entry: одна завершённая тренировка в истории.
// ExN: рабочий вес, ExNAddition: прибавка к следующей сессии того же типа.
type Entry struct {
	ID          int64
	Date        time.Time
	Type        SessionType
	Ex1         float64
	Ex1Addition float64
	Ex2         float64
	Ex2Addition float64
	Ex3         float64
	Ex3Addition float64
}

// Loads возвращает рабочие веса тремя значениями
func (e Entry) Loads() [3]float64 {
	return [3]float64{e.Ex1, e.Ex2, e.Ex3}
}

// Additions возвращает прибавки тремя значениями
func (e Entry) Additions() [3]float64 {
	return [3]float64{e.Ex1Addition, e.Ex2Addition, e.Ex3Addition}
}

// Draft: запись, которая собирается по шагам и ещё не сохранена
type Draft struct {
	Type      SessionType
	Loads     [3]float64
	Additions [3]float64
}

// Entry превращает черновик в запись с датой date
func (d Draft) Entry(date time.Time) Entry {
	return Entry{
		Date:        date,
		Type:        d.Type,
		Ex1:         d.Loads[0],
		Ex1Addition: d.Additions[0],
		Ex2:         d.Loads[1],
		Ex2Addition: d.Additions[1],
		Ex3:         d.Loads[2],
		Ex3Addition: d.Additions[2],
	}
}
