package training

import (
	"fmt"
	"strconv"
	"strings"

	"fivebyfive/internal/models"
)

var (
	labelsA = [ValuesPerStep]string{"Squat 5x5", "Bench Press 5x5", "Barbell Row 5x5"}
	labelsB = [ValuesPerStep]string{"Squat 5x5", "Overhead Press 5x5", "Deadlift 1x5"}
)

// Labels возвращает названия упражнений для типа сессии
func Labels(t models.SessionType) [ValuesPerStep]string {
	if t == models.SessionA {
		return labelsA
	}
	return labelsB
}

// Target: упражнение и вес, который нужно взять
type Target struct {
	Label  string
	Weight float64
}

// Session: план на ближайшую тренировку
type Session struct {
	Type    models.SessionType
	Targets [ValuesPerStep]Target
}

// ProjectNextSession считает план по последней записи того же типа:
// вес каждого упражнения = вес из записи + прибавка из той же записи.
func ProjectNextSession(last models.Entry) Session {
	labels := Labels(last.Type)
	loads := last.Loads()
	additions := last.Additions()

	s := Session{Type: last.Type}
	for i := range s.Targets {
		s.Targets[i] = Target{
			Label:  labels[i],
			Weight: loads[i] + additions[i],
		}
	}
	return s
}

// Compact возвращает веса одной строкой, чтобы их можно было отправить обратно в /record
func (s Session) Compact() string {
	parts := make([]string, len(s.Targets))
	for i, t := range s.Targets {
		parts[i] = FormatWeight(t.Weight)
	}
	return strings.Join(parts, " ")
}

// Text форматирует план для Telegram (Markdown)
func (s Session) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Today's session is %s\n", s.Type)
	for i, t := range s.Targets {
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, t.Label, FormatWeight(t.Weight))
	}
	sb.WriteString("`" + s.Compact() + "`")
	return sb.String()
}

// FormatWeight печатает вес без лишних нулей: 100, 104.5
func FormatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
