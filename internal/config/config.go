package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config содержит конфигурацию приложения
type Config struct {
	BotToken      string `yaml:"bot_token"`
	AllowedChatID int64  `yaml:"allowed_chat_id"`

	// Хранилище истории
	DBDriver     string        `yaml:"db_driver" validate:"oneof=postgres sqlite"`
	DatabaseURL  string        `yaml:"database_url"`
	DB           DBConfig      `yaml:"db"`
	StoreTimeout time.Duration `yaml:"store_timeout" validate:"gt=0"`

	Language    string `yaml:"language" validate:"oneof=en ru"`
	AgendaCron  string `yaml:"agenda_cron"`
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	Debug       bool   `yaml:"debug"`
}

// DBConfig: параметры подключения к Postgres, если DATABASE_URL не задан
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// botConfig: то, без чего бот не запустится
type botConfig struct {
	BotToken      string `validate:"required"`
	AllowedChatID int64  `validate:"required"`
}

var validate = validator.New()

// Load загружает конфигурацию: YAML-файл (если path не пустой),
// затем переменные окружения и .env файл поверх него.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	env, err := loadEnvFile(".env")
	if err != nil {
		env = make(map[string]string)
	}
	if err := applyEnv(cfg, lookupFunc(env)); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		DBDriver: "postgres",
		DB: DBConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "fivebyfive",
			SSLMode: "disable",
		},
		StoreTimeout: 5 * time.Second,
		Language:     "en",
	}
}

// lookupFunc ищет ключ сначала в окружении, потом в .env
func lookupFunc(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if value := os.Getenv(key); value != "" {
			return value, true
		}
		if value, ok := env[key]; ok && value != "" {
			return value, true
		}
		return "", false
	}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"BOT_TOKEN":    &cfg.BotToken,
		"DB_DRIVER":    &cfg.DBDriver,
		"DATABASE_URL": &cfg.DatabaseURL,
		"DB_HOST":      &cfg.DB.Host,
		"DB_PORT":      &cfg.DB.Port,
		"DB_USER":      &cfg.DB.User,
		"DB_PASSWORD":  &cfg.DB.Password,
		"DB_NAME":      &cfg.DB.Name,
		"DB_SSLMODE":   &cfg.DB.SSLMode,
		"BOT_LANGUAGE": &cfg.Language,
		"AGENDA_CRON":  &cfg.AgendaCron,
		"METRICS_ADDR": &cfg.MetricsAddr,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("ALLOWED_CHAT_ID"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("ALLOWED_CHAT_ID: %w", err)
		}
		cfg.AllowedChatID = id
	}
	if v, ok := lookup("STORE_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("STORE_TIMEOUT: %w", err)
		}
		cfg.StoreTimeout = d
	}
	if v, ok := lookup("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEBUG: %w", err)
		}
		cfg.Debug = b
	}

	cfg.DBDriver = strings.ToLower(cfg.DBDriver)
	cfg.Language = strings.ToLower(cfg.Language)
	return nil
}

// ValidateBot проверяет поля, обязательные для запуска бота
func (c *Config) ValidateBot() error {
	err := validate.Struct(botConfig{BotToken: c.BotToken, AllowedChatID: c.AllowedChatID})
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		missing := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			switch fe.Field() {
			case "BotToken":
				missing = append(missing, "BOT_TOKEN")
			case "AllowedChatID":
				missing = append(missing, "ALLOWED_CHAT_ID")
			}
		}
		return fmt.Errorf("not set: %s", strings.Join(missing, ", "))
	}
	return err
}

// DSN возвращает строку подключения к базе данных.
// Для Postgres это URL: его понимают и lib/pq, и golang-migrate.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.DBDriver == "sqlite" {
		return "fivebyfive.db"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DB.User, c.DB.Password),
		Host:     c.DB.Host + ":" + c.DB.Port,
		Path:     "/" + c.DB.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.DB.SSLMode),
	}
	return u.String()
}

// loadEnvFile читает .env файл
func loadEnvFile(filename string) (map[string]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	env := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		env[key] = value
	}

	return env, scanner.Err()
}
