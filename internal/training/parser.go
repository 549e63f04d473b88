package training

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValuesPerStep: сколько чисел ждём в одном сообщении
const ValuesPerStep = 3

// ParseError описывает, что именно не так с введёнными значениями
type ParseError struct {
	Field   string
	Message string
}

func (e ParseError) Error() string {
	return e.Message
}

// ParseTriple разбирает сообщение вида "100 60 80".
// Значения разделяются ровно одним пробелом, токенов должно быть ровно три;
// пробел в начале или в конце даёт пустой токен и ошибку. Перевод строки
// после числа допускается. Десятичная запятая тоже: "2,5" == 2.5.
// Шестнадцатеричная запись ("0x1p4") не принимается.
func ParseTriple(text string) ([ValuesPerStep]float64, error) {
	var values [ValuesPerStep]float64

	parts := strings.Split(text, " ")
	if len(parts) != ValuesPerStep {
		if countTokens(parts) == ValuesPerStep {
			return values, ParseError{
				Field:   "separator",
				Message: "values must be separated by a single space",
			}
		}
		return values, ParseError{
			Field:   "count",
			Message: fmt.Sprintf("expected exactly %d values separated by spaces, got %d", ValuesPerStep, countTokens(parts)),
		}
	}

	for i, part := range parts {
		if part == "" {
			return values, ParseError{
				Field:   fmt.Sprintf("value%d", i+1),
				Message: fmt.Sprintf("value #%d is empty, use a single space between values", i+1),
			}
		}
		token := strings.TrimRight(part, "\r\n")
		v, err := strconv.ParseFloat(strings.Replace(token, ",", ".", 1), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || strings.ContainsAny(token, "xX") {
			return values, ParseError{
				Field:   fmt.Sprintf("value%d", i+1),
				Message: fmt.Sprintf("value #%d (%q) is not a number", i+1, part),
			}
		}
		values[i] = v
	}

	return values, nil
}

// countTokens считает непустые токены для сообщения об ошибке
func countTokens(parts []string) int {
	n := 0
	for _, p := range parts {
		if p != "" {
			n++
		}
	}
	return n
}
