// Package cli defines the fivebyfive commands.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fivebyfive/internal/config"
	"fivebyfive/internal/repository"
)

var (
	configPath string
	version    = "dev" // задаётся через ldflags
)

var rootCmd = &cobra.Command{
	Use:   "fivebyfive",
	Short: "5x5 workout progression tracker",
	Long: `fivebyfive keeps a log of alternating A/B barbell sessions and
tells you what to lift next time. Run "fivebyfive bot" to start the
Telegram bot.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(agendaCmd)
	rootCmd.AddCommand(exportCmd)
}

// newLogger: подробный лог в debug-режиме, JSON в остальных случаях
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStore применяет миграции и открывает хранилище истории
func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, *repository.Repository, error) {
	dsn := cfg.DSN()

	if err := repository.RunMigrations(cfg.DBDriver, dsn); err != nil {
		return nil, nil, err
	}

	db, err := repository.Open(ctx, cfg.DBDriver, dsn)
	if err != nil {
		return nil, nil, err
	}
	return db, repository.New(db, cfg.DBDriver), nil
}
