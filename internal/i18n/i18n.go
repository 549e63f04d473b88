package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// Language представляет поддерживаемый язык
type Language string

const (
	LangEnglish Language = "en"
	LangRussian Language = "ru"
	DefaultLang Language = LangEnglish
)

//go:embed locales/*.json
var localesFS embed.FS

// translations хранит все переводы
var translations = struct {
	sync.RWMutex
	data map[Language]map[string]string
}{data: make(map[Language]map[string]string)}

var loadEmbedded sync.Once

// Load загружает переводы из каталога dir файловой системы fsys
func Load(fsys fs.FS, dir string) error {
	loaded := make(map[Language]map[string]string)

	for _, lang := range []Language{LangEnglish, LangRussian} {
		filePath := path.Join(dir, string(lang)+".json")
		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return fmt.Errorf("reading locale %s: %w", filePath, err)
		}

		var langData map[string]string
		if err := json.Unmarshal(data, &langData); err != nil {
			return fmt.Errorf("parsing locale %s: %w", filePath, err)
		}
		loaded[lang] = langData
	}

	translations.Lock()
	defer translations.Unlock()
	for lang, langData := range loaded {
		translations.data[lang] = langData
	}
	return nil
}

// ensureLoaded подгружает встроенные переводы при первом обращении
func ensureLoaded() {
	loadEmbedded.Do(func() {
		if err := Load(localesFS, "locales"); err != nil {
			panic(err)
		}
	})
}

// T возвращает перевод для указанного ключа и языка
func T(key string, lang Language) string {
	ensureLoaded()

	translations.RLock()
	defer translations.RUnlock()

	if langData, ok := translations.data[lang]; ok {
		if text, ok := langData[key]; ok {
			return text
		}
	}

	// Fallback на английский
	if lang != DefaultLang {
		if text, ok := translations.data[DefaultLang][key]; ok {
			return text
		}
	}

	// Если ключ не найден, возвращаем сам ключ
	return key
}

// Tf возвращает форматированный перевод
func Tf(key string, lang Language, args ...any) string {
	template := T(key, lang)
	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...)
}

// ParseLanguage преобразует строку в Language
func ParseLanguage(lang string) Language {
	switch Language(strings.ToLower(lang)) {
	case LangRussian:
		return LangRussian
	default:
		return LangEnglish
	}
}
