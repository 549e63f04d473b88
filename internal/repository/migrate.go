package repository

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations применяет все недостающие миграции для выбранного драйвера.
// Мигратор открывает собственное соединение и закрывает его по завершении.
func RunMigrations(driver, dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("loading migrations for %s: %w", driver, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrationURL(driver, dsn))
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// migrationURL приводит DSN к виду, который понимает golang-migrate
func migrationURL(driver, dsn string) string {
	if driver == DriverSQLite && !strings.HasPrefix(dsn, "sqlite://") {
		return "sqlite://" + dsn
	}
	return dsn
}
