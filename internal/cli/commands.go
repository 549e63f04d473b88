package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fivebyfive/internal/config"
	"fivebyfive/internal/export"
	"fivebyfive/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

var agendaCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Print today's session",
	Long: `Print the planned session using the same rule as the /agenda
command: targets come from the second-to-latest entry in the history.`,
	RunE: runAgenda,
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the whole history to an xlsx file",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", export.FileName, "output file")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := repository.RunMigrations(cfg.DBDriver, cfg.DSN()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}

func runAgenda(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	defer cancel()

	db, repo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	replies, err := newTracker(repo.Entry, cfg, logger).Agenda(ctx, cfg.AllowedChatID)
	if err != nil {
		return err
	}
	for _, r := range replies {
		fmt.Fprintln(cmd.OutOrStdout(), r.Text)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	defer cancel()

	db, repo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := repo.Entry.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("history is empty, nothing to export")
	}

	data, err := export.HistoryWorkbook(entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", exportOut, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d entries written to %s\n", len(entries), exportOut)
	return nil
}
