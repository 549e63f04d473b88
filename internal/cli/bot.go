package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fivebyfive/internal/bot"
	"fivebyfive/internal/config"
	"fivebyfive/internal/i18n"
	"fivebyfive/internal/metrics"
	"fivebyfive/internal/repository"
	"fivebyfive/internal/server"
	"fivebyfive/internal/tracker"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	Long: `Start long polling for the allowed chat. Migrations are applied
before the first update is read. When METRICS_ADDR is set, /healthz and
/metrics are served on that address.`,
	RunE: runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, repo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("history store ready", zap.String("driver", cfg.DBDriver))

	store := repository.NewGuardedStore(repo.Entry, cfg.StoreTimeout, repository.DefaultBreakerConfig(), logger)
	collector := metrics.NewCollector("fivebyfive")
	lang := i18n.ParseLanguage(cfg.Language)

	core := tracker.New(store, logger,
		tracker.WithLanguage(lang),
		tracker.WithObserver(collector))

	if cfg.MetricsAddr != "" {
		srv := server.New(db, collector.Registry(), logger)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("http server failed", zap.Error(err))
			}
		}()
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("connecting to telegram: %w", err)
	}
	api.Debug = cfg.Debug
	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	telegramBot := bot.New(api, core, store, bot.Config{
		AllowedChatID:  cfg.AllowedChatID,
		Language:       lang,
		RequestTimeout: 2 * cfg.StoreTimeout,
	}, logger).WithUpdateCounter(collector)

	if cfg.AgendaCron != "" {
		stopReminder, err := telegramBot.StartAgendaReminder(ctx, cfg.AgendaCron)
		if err != nil {
			return err
		}
		defer stopReminder()
	}

	return telegramBot.Start(ctx)
}

// newTracker собирает трекер без Telegram для команд CLI
func newTracker(store tracker.HistoryStore, cfg *config.Config, logger *zap.Logger) *tracker.Tracker {
	return tracker.New(store, logger, tracker.WithLanguage(i18n.ParseLanguage(cfg.Language)))
}
